// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package media

import (
	"mime"
	"strings"
)

// Mime types the classifier recognises.
const (
	MimeImageJPEG = "image/jpeg"
	MimeAudio3GPP = "audio/3gpp"
	MimeAudioAAC  = "audio/aac"
	MimeAudioAMR  = "audio/amr"
	MimeAudioWAV  = "audio/wav"
	MimeVideo3GPP = "video/3gpp"
	MimeVideoMP4  = "video/mp4"
)

// Class is the closed classification used to pick a probe.
type Class int

const (
	ClassUnknown Class = iota
	ClassImage
	ClassAudio
	ClassVideo
)

func (c Class) String() string {
	switch c {
	case ClassImage:
		return "image"
	case ClassAudio:
		return "audio"
	case ClassVideo:
		return "video"
	default:
		return "unknown"
	}
}

var audioTypes = map[string]struct{}{
	MimeAudio3GPP: {},
	MimeAudioAAC:  {},
	MimeAudioAMR:  {},
	MimeAudioWAV:  {},
}

// Classify maps a resolved mime type (and the path as given, for the .jpg
// fallback) onto a probe class. An empty mime type is always unknown.
func Classify(mimeType, filePath string) Class {
	if mimeType == "" {
		return ClassUnknown
	}
	if mimeType == MimeImageJPEG || strings.HasSuffix(filePath, ".jpg") {
		return ClassImage
	}
	if _, ok := audioTypes[mimeType]; ok {
		return ClassAudio
	}
	switch mimeType {
	case MimeVideo3GPP, MimeVideoMP4:
		return ClassVideo
	}
	return ClassUnknown
}

// extensionTypes pins the media extensions so resolution does not depend
// on the host's mime.types.
var extensionTypes = map[string]string{
	"jpg":  MimeImageJPEG,
	"jpeg": MimeImageJPEG,
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"3gp":  MimeVideo3GPP,
	"3gpp": MimeVideo3GPP,
	"mp4":  MimeVideoMP4,
	"m4v":  "video/x-m4v",
	"mkv":  "video/x-matroska",
	"webm": "video/webm",
	"m4a":  "audio/mp4",
	"aac":  MimeAudioAAC,
	"amr":  MimeAudioAMR,
	"wav":  MimeAudioWAV,
	"mp3":  "audio/mpeg",
	"ogg":  "audio/ogg",
	"flac": "audio/flac",
}

// MimeTypeForExtension resolves a mime type from the extension of p.
// Matching is case-insensitive and "3ga" always maps to audio/3gpp.
func MimeTypeForExtension(p string) string {
	ext := p
	if i := strings.LastIndexByte(ext, '.'); i != -1 {
		ext = ext[i+1:]
	}
	ext = strings.ToLower(ext)
	if ext == "" || strings.ContainsAny(ext, "/\\") {
		return ""
	}
	if ext == "3ga" {
		return MimeAudio3GPP
	}
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	t := mime.TypeByExtension("." + ext)
	if t == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return t
}
