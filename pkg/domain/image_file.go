package domain

import "strings"

const ImageMimePrefix = "image/"

// ImageFile is a raw upload as received from the user.
type ImageFile struct {
	Name     string
	MimeType string
	Data     []byte
}

func (f ImageFile) IsImage() bool {
	return strings.HasPrefix(f.MimeType, ImageMimePrefix)
}

func (f ImageFile) SizeKB() float64 {
	return float64(len(f.Data)) / 1024
}
