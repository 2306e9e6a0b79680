// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package media turns captured files into normalized descriptors and
// enriches them with format data from image and media probes.
package media

// MediaDescriptor is the normalized result record for one captured file.
type MediaDescriptor struct {
	Name             string `json:"name"`
	FullPath         string `json:"fullPath"`
	Type             string `json:"type"`
	LastModifiedDate int64  `json:"lastModifiedDate"`
	Size             int64  `json:"size"`
}

// FormatDescriptor carries presentation metadata for a media file.
// Bitrate and Codecs are never computed and stay at their zero values.
type FormatDescriptor struct {
	Height   int    `json:"height"`
	Width    int    `json:"width"`
	Bitrate  int    `json:"bitrate"`
	Duration int    `json:"duration"`
	Codecs   string `json:"codecs"`
}
