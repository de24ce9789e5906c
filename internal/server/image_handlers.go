package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/librarease/images/internal/usecase"
)

type ImagePathRequest struct {
	Kind     string `param:"kind" validate:"required"`
	OwnerID  string `param:"owner_id" validate:"required"`
	Filename string `param:"filename" validate:"required"`
}

type UploadImageRequest struct {
	Kind    string `param:"kind" validate:"required"`
	OwnerID string `param:"owner_id" validate:"required"`
}

func (s *Server) UploadImage(ctx echo.Context) error {
	var req UploadImageRequest
	if err := (&echo.DefaultBinder{}).BindPathParams(ctx, &req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}
	kind, err := usecase.ParseOwnerKind(req.Kind)
	if err != nil {
		return ctx.JSON(404, map[string]string{"error": "Not Found"})
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return s.errorJSON(ctx, fmt.Errorf("%w: %w", usecase.ErrMissingInput, err))
	}
	f, err := fh.Open()
	if err != nil {
		return s.errorJSON(ctx, fmt.Errorf("%w: %w", usecase.ErrMissingInput, err))
	}
	defer f.Close()

	d, err := s.server.Upload(ctx.Request().Context(), kind, req.OwnerID, usecase.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Body:        f,
	})
	if err != nil {
		return s.errorJSON(ctx, err)
	}

	img := Image{
		ImageURL: d.ImageURL,
		FileName: d.FileName,
		FileSize: d.FileSize,
		MimeType: d.MimeType,
	}
	if len(d.Colors) > 0 {
		img.Colors = make(map[int][4]uint8, len(d.Colors))
		for i, c := range d.Colors {
			img.Colors[i] = c
		}
	}
	return ctx.JSON(200, img)
}

func (s *Server) GetImage(ctx echo.Context) error {
	var req ImagePathRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}
	kind, err := usecase.ParseOwnerKind(req.Kind)
	if err != nil {
		return ctx.JSON(404, map[string]string{"error": "Not Found"})
	}

	o, err := s.server.Fetch(ctx.Request().Context(), kind, req.OwnerID, req.Filename)
	if err != nil {
		return s.errorJSON(ctx, err)
	}

	h := ctx.Response().Header()
	h.Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", o.Name))
	h.Set("Cache-Control", "public, max-age=31536000, immutable")
	return ctx.Blob(200, o.MediaType, o.Data)
}

func (s *Server) DeleteImage(ctx echo.Context) error {
	var req ImagePathRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}
	kind, err := usecase.ParseOwnerKind(req.Kind)
	if err != nil {
		return ctx.JSON(404, map[string]string{"error": "Not Found"})
	}

	r, err := s.server.Delete(ctx.Request().Context(), kind, req.OwnerID, req.Filename)
	if err != nil {
		return s.errorJSON(ctx, err)
	}

	msg := "Image deleted successfully"
	if r.PartitionRemoved {
		msg = "Image deleted successfully and directory removed"
	}
	return ctx.JSON(200, Res{Message: msg})
}

// errorJSON maps pipeline errors to responses. Server side details are
// logged by the usecase and replaced with a generic message here.
func (s *Server) errorJSON(ctx echo.Context, err error) error {
	switch {
	case usecase.IsClientError(err):
		return ctx.JSON(http.StatusBadRequest, Res{Error: err.Error()})
	case errors.Is(err, usecase.ErrNotFound):
		return ctx.JSON(http.StatusNotFound, Res{Error: "Image not found"})
	case errors.Is(err, usecase.ErrConversionFailed):
		return ctx.JSON(http.StatusInternalServerError, Res{Error: "Failed to convert image"})
	case errors.Is(err, usecase.ErrDeleteFailed):
		return ctx.JSON(http.StatusInternalServerError, Res{Error: "Failed to delete image"})
	case errors.Is(err, usecase.ErrWriteFailed):
		return ctx.JSON(http.StatusInternalServerError, Res{Error: "Failed to store image"})
	}
	s.logger.ErrorContext(ctx.Request().Context(), "unhandled error", slog.String("err", err.Error()))
	return ctx.JSON(http.StatusInternalServerError, Res{Error: "Internal Server Error"})
}
