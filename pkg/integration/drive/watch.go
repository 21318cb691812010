package drive

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TemplateSync pulls report templates from a Google Drive folder into
// the local template directory, so templates can be edited from the
// spreadsheet side without touching the server.
type TemplateSync struct {
	service     DriveAPI
	templateDir string
	interval    time.Duration
	stopCh      chan struct{}
}

// NewTemplateSync creates a new template sync.
func NewTemplateSync(service DriveAPI, templateDir string, interval time.Duration) *TemplateSync {
	return &TemplateSync{
		service:     service,
		templateDir: templateDir,
		interval:    interval,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the periodic sync loop.
func (s *TemplateSync) Start() {
	if err := s.syncOnce(context.Background()); err != nil {
		log.Printf("template sync: initial pass failed: %v", err)
	}

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.syncOnce(context.Background()); err != nil {
					log.Printf("template sync: %v", err)
				}
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop stops the sync loop.
func (s *TemplateSync) Stop() {
	close(s.stopCh)
}

func (s *TemplateSync) syncOnce(ctx context.Context) error {
	files, err := s.service.ListFiles(ctx)
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}

	for _, f := range files {
		if !strings.HasSuffix(f.Name, ".md") {
			continue
		}
		localPath := filepath.Join(s.templateDir, filepath.Base(f.Name))

		if info, err := os.Stat(localPath); err == nil && !f.ModifiedAt.After(info.ModTime()) {
			continue
		}

		reader, err := s.service.DownloadFile(ctx, f.ID)
		if err != nil {
			log.Printf("template sync: download %s: %v", f.Name, err)
			continue
		}
		data, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			log.Printf("template sync: read %s: %v", f.Name, err)
			continue
		}

		if err := os.MkdirAll(s.templateDir, 0755); err != nil {
			return err
		}
		if err := os.WriteFile(localPath, data, 0644); err != nil {
			log.Printf("template sync: write %s: %v", f.Name, err)
		}
	}

	return nil
}
