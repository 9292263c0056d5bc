package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/dd-go/service/config"
)

type localService struct {
	CfgSvc config.IService
}

// NewLocal keeps artifacts under an `archive` subfolder of the recordings
// folder and returns a file URL. Fleet deployments swap this for a cloud
// storage implementation.
func NewLocal(cfgsvc config.IService) IService {
	return &localService{
		CfgSvc: cfgsvc,
	}
}

func (svc *localService) StoreFile(fileName string) (string, error) {
	archive := filepath.Join(svc.CfgSvc.GetRecordingsFolder(), "archive")
	if err := os.MkdirAll(archive, 0755); err != nil {
		return "", xerrors.Errorf("creating archive folder: %w", err)
	}

	src, err := os.Open(fileName)
	if err != nil {
		return "", xerrors.Errorf("opening %s: %w", fileName, err)
	}
	defer src.Close()

	target := filepath.Join(archive, filepath.Base(fileName))
	dst, err := os.Create(target)
	if err != nil {
		return "", xerrors.Errorf("creating %s: %w", target, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", xerrors.Errorf("copying %s: %w", fileName, err)
	}

	return fmt.Sprintf("file://%s", target), nil
}
