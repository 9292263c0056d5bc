package clips

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/dd-go/service/config"
)

type localService struct {
	CfgSvc config.IService
}

// NewLocal resolves clips from the recordings folder where the evidence
// recorder drops them as <cameraID>_clip_<unixStart>.mp4 chunks.
func NewLocal(cfgsvc config.IService) IService {
	return &localService{
		CfgSvc: cfgsvc,
	}
}

func (svc *localService) RetrieveClip(cameraID string, from, to int64) (string, error) {
	pattern := filepath.Join(svc.CfgSvc.GetRecordingsFolder(), fmt.Sprintf("%s_clip_*.mp4", cameraID))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", xerrors.Errorf("globbing clips: %w", err)
	}

	// Pick the latest chunk that started at or before the window end.
	var best string
	var bestStart int64 = -1
	for _, match := range matches {
		base := strings.TrimSuffix(filepath.Base(match), ".mp4")
		idx := strings.LastIndex(base, "_")
		if idx < 0 {
			continue
		}
		start, err := strconv.ParseInt(base[idx+1:], 10, 64)
		if err != nil {
			continue
		}
		if start <= to && start > bestStart {
			best = match
			bestStart = start
		}
	}

	if best == "" {
		return "", xerrors.Errorf("no clip found for camera %s in window [%d, %d]", cameraID, from, to)
	}

	return best, nil
}
