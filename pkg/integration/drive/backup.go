package drive

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Backup mirrors generated report files to a Google Drive folder.
// Drive is the source of truth for what exists remotely: each pass
// lists the folder and uploads local .md files that are missing or
// newer than the remote copy.
type Backup struct {
	service   DriveAPI
	reportDir string
	interval  time.Duration

	mu     sync.Mutex
	stopCh chan struct{}
}

// NewBackup creates a new Drive backup for the report directory.
func NewBackup(service DriveAPI, reportDir string, interval time.Duration) *Backup {
	return &Backup{
		service:   service,
		reportDir: reportDir,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic backup loop.
func (b *Backup) Start() {
	if err := b.backupOnce(context.Background()); err != nil {
		log.Printf("drive backup: initial pass failed: %v", err)
	}

	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := b.backupOnce(context.Background()); err != nil {
					log.Printf("drive backup: %v", err)
				}
			case <-b.stopCh:
				return
			}
		}
	}()
}

// Stop stops the backup loop.
func (b *Backup) Stop() {
	close(b.stopCh)
}

// UploadFile pushes a single file immediately, replacing any remote
// file with the same name. It satisfies the report service's uploader.
func (b *Backup) UploadFile(ctx context.Context, localPath, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	remote, err := b.remoteIndex(ctx)
	if err != nil {
		return err
	}
	existingID := ""
	if f, ok := remote[name]; ok {
		existingID = f.ID
	}
	_, err = b.service.UploadFile(ctx, localPath, name, existingID)
	return err
}

func (b *Backup) backupOnce(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	remote, err := b.remoteIndex(ctx)
	if err != nil {
		return err
	}

	return filepath.Walk(b.reportDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != b.reportDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(info.Name(), ".md") {
			return nil
		}

		existing, known := remote[info.Name()]
		if known && !info.ModTime().After(existing.ModifiedAt) {
			return nil
		}

		existingID := ""
		if known {
			existingID = existing.ID
		}
		if _, err := b.service.UploadFile(ctx, path, info.Name(), existingID); err != nil {
			log.Printf("drive backup: upload %s: %v", info.Name(), err)
		}
		return nil
	})
}

func (b *Backup) remoteIndex(ctx context.Context) (map[string]FileInfo, error) {
	files, err := b.service.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]FileInfo, len(files))
	for _, f := range files {
		index[f.Name] = f
	}
	return index, nil
}
