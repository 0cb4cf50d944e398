package main

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

const mediaFolder = "media"

// uploadMediaFile sends a file to Cloudinary under a random public ID and
// returns (secureURL, publicID). The public ID is stored so the asset can be
// destroyed when the media item is deleted.
func (app *application) uploadMediaFile(ctx context.Context, file io.Reader) (string, string, error) {
	publicID := uuid.New().String()

	resp, err := app.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:    mediaFolder,
		PublicID:  publicID,
		Overwrite: api.Bool(false),
	})
	if err != nil {
		return "", "", fmt.Errorf("cloudinary upload: %w", err)
	}

	return resp.SecureURL, mediaFolder + "/" + publicID, nil
}

func (app *application) destroyMediaFile(ctx context.Context, publicID string) error {
	_, err := app.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID: publicID,
	})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	return nil
}
