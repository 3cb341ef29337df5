package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/roomkit/roomd/config"
	"github.com/roomkit/roomd/internal/domain"
	"github.com/roomkit/roomd/internal/files"
	"github.com/roomkit/roomd/internal/room"
	"github.com/roomkit/roomd/internal/state"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	store *state.Store
	files *files.Store
	reg   *room.Registry
	cfg   *config.Watcher
}

func NewHandler(store *state.Store, fileStore *files.Store, reg *room.Registry, cfg *config.Watcher) *Handler {
	return &Handler{
		store: store,
		files: fileStore,
		reg:   reg,
		cfg:   cfg,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.files.Rooms()
	if err != nil {
		slog.Error("handler.Index rooms:", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	fs, err := h.files.Files()
	if err != nil {
		slog.Error("handler.Index files:", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	writeJSON(w, http.StatusOK, IndexResponse{OK: true, Rooms: rooms, Files: fs})
}

// GET /room/{room}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := h.roomID(r)
	doc, err := h.store.Load(roomID)
	if err != nil {
		slog.Error("handler.GetRoom:", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	writeJSON(w, http.StatusOK, RoomResponse{OK: true, Room: roomID, Data: doc})
}

// POST /room/{room} — body is a partial document merged last-write-wins.
func (h *Handler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	roomID := h.roomID(r)

	var partial domain.Document
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	doc, err := h.store.Merge(roomID, partial)
	if err != nil {
		// The in-memory merge went through; only the disk write failed.
		slog.Error("handler.UpdateRoom:", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	writeJSON(w, http.StatusOK, RoomResponse{OK: true, Room: roomID, Data: doc})
}

// DELETE /room/{room}
func (h *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.Current().Storage.AllowDelete {
		writeError(w, http.StatusForbidden, domain.ErrDeleteDisabled.Error())
		return
	}
	roomID := h.roomID(r)

	if err := h.store.Delete(roomID); err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		slog.Error("handler.DeleteRoom:", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	// Joined connections keep their handles; the room simply has no
	// membership record or document until someone rejoins.
	h.reg.DropRoom(roomID)
	slog.Info("room deleted", "room", roomID)

	writeJSON(w, http.StatusOK, RoomDeletedResponse{OK: true, Room: roomID})
}

// POST /file/{filename} — multipart/form-data, field name: file.
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	limit := h.cfg.Current().MaxUploadBytes()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	name, err := h.files.Save(header.Filename, file, limit)
	if err != nil {
		if errors.Is(err, domain.ErrFileTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		slog.Error("handler.UploadFile:", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	slog.Info("file uploaded", "filename", name)

	writeJSON(w, http.StatusOK, FileResponse{OK: true, Filename: name})
}

// GET /file/*
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	path, err := h.files.Path(chi.URLParam(r, "*"))
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, path)
}

// DELETE /file/{filename}
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.Current().Storage.AllowDelete {
		writeError(w, http.StatusForbidden, domain.ErrDeleteDisabled.Error())
		return
	}
	name := chi.URLParam(r, "filename")

	if err := h.files.Delete(name); err != nil {
		if errors.Is(err, domain.ErrFileNotFound) {
			writeError(w, http.StatusNotFound, "file not found")
			return
		}
		slog.Error("handler.DeleteFile:", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	slog.Info("file deleted", "filename", name)

	writeJSON(w, http.StatusOK, FileResponse{OK: true, Filename: name})
}

// GET /files?prefix=
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = h.cfg.Current().Files.SearchPrefix
	}

	fs, err := h.files.List(prefix)
	if err != nil {
		slog.Error("handler.ListFiles:", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	writeJSON(w, http.StatusOK, FilesResponse{OK: true, Files: fs})
}

func (h *Handler) roomID(r *http.Request) string {
	return domain.SanitizeRoomID(chi.URLParam(r, "room"), h.cfg.Current().Rooms.Default)
}
