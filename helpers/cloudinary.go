package helpers

import (
	"context"
	"log"
	"mime/multipart"
	"os"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// UploadFile streams a listing photo to Cloudinary and returns its URL.
func UploadFile(file multipart.File, fileHeader *multipart.FileHeader, folder string) (string, error) {

	// Reset file pointer before upload
	file.Seek(0, 0)

	cld, err := cloudinary.NewFromURL(os.Getenv("CLOUDINARY_URL"))
	if err != nil {
		log.Println("Cloudinary init error:", err)
		return "", err
	}

	uploadResult, err := cld.Upload.Upload(context.Background(), file, uploader.UploadParams{
		Folder:       folder,
		ResourceType: "image",
		PublicID:     fileHeader.Filename,
	})

	if err != nil {
		log.Println("Cloudinary upload error:", err)
		return "", err
	}

	return uploadResult.SecureURL, nil
}
