package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	googleauth "github.com/mklimuk/sheet-pilot/pkg/integration/google"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

// FileInfo is the subset of Drive file metadata the sync loops compare on.
type FileInfo struct {
	ID         string
	Name       string
	MimeType   string
	ModifiedAt time.Time
	Size       int64
}

// DriveAPI is the interface used by Backup and TemplateSync for testability.
type DriveAPI interface {
	ListFiles(ctx context.Context) ([]FileInfo, error)
	UploadFile(ctx context.Context, localPath, fileName, existingFileID string) (string, error)
	DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// Service wraps the Google Drive API scoped to a single folder. Reports and
// templates each get their own Service pointed at their own folder.
type Service struct {
	srv      *gdrive.Service
	folderID string
}

// NewService creates a Drive client from a service account key file.
func NewService(ctx context.Context, credentialsFile, folderID string) (*Service, error) {
	srv, err := gdrive.NewService(ctx, googleauth.ClientOption(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return &Service{srv: srv, folderID: folderID}, nil
}

const listFields = "nextPageToken, files(id, name, mimeType, modifiedTime, size)"

// ListFiles returns every non-trashed file directly inside the folder,
// following pagination to the end.
func (s *Service) ListFiles(ctx context.Context) ([]FileInfo, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false", s.folderID)

	var all []FileInfo
	token := ""
	for {
		call := s.srv.Files.List().
			Q(query).
			Fields(googleapi.Field(listFields)).
			Context(ctx)
		if token != "" {
			call = call.PageToken(token)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("drive list: %w", err)
		}

		for _, f := range resp.Files {
			// ModifiedTime is RFC 3339; a parse failure leaves the zero
			// time, which the sync loops treat as "unknown, re-upload".
			modTime, _ := time.Parse(time.RFC3339, f.ModifiedTime)
			all = append(all, FileInfo{
				ID:         f.Id,
				Name:       f.Name,
				MimeType:   f.MimeType,
				ModifiedAt: modTime,
				Size:       f.Size,
			})
		}

		token = resp.NextPageToken
		if token == "" {
			return all, nil
		}
	}
}

// UploadFile pushes a local file into the folder. A non-empty existingFileID
// overwrites that file in place; otherwise a new file is created. Returns the
// resulting file ID.
func (s *Service) UploadFile(ctx context.Context, localPath, fileName, existingFileID string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	if existingFileID != "" {
		updated, err := s.srv.Files.Update(existingFileID, &gdrive.File{Name: fileName}).
			Media(f).
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("drive update %s: %w", fileName, err)
		}
		return updated.Id, nil
	}

	created, err := s.srv.Files.Create(&gdrive.File{
		Name:    fileName,
		Parents: []string{s.folderID},
	}).Media(f).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive create %s: %w", fileName, err)
	}
	return created.Id, nil
}

// DownloadFile streams a file's content; the caller closes the reader.
func (s *Service) DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	resp, err := s.srv.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("drive download %s: %w", fileID, err)
	}
	return resp.Body, nil
}
