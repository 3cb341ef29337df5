package http

import "github.com/roomkit/roomd/internal/domain"

type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type IndexResponse struct {
	OK    bool     `json:"ok"`
	Rooms []string `json:"rooms"`
	Files []string `json:"files"`
}

type RoomResponse struct {
	OK   bool            `json:"ok"`
	Room string          `json:"room"`
	Data domain.Document `json:"data"`
}

type RoomDeletedResponse struct {
	OK   bool   `json:"ok"`
	Room string `json:"room"`
}

type FileResponse struct {
	OK       bool   `json:"ok"`
	Filename string `json:"filename"`
}

type FilesResponse struct {
	OK    bool     `json:"ok"`
	Files []string `json:"files"`
}
