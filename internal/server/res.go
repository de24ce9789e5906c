package server

type Image struct {
	ImageURL string           `json:"image_url"`
	FileName string           `json:"file_name"`
	FileSize int64            `json:"file_size"`
	MimeType string           `json:"mime_type"`
	Colors   map[int][4]uint8 `json:"colors,omitempty"`
}

type Res struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}
