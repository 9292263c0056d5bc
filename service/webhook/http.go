package webhook

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/dd-go/service/config"
)

type httpService struct {
	CfgSvc config.IService
	client *http.Client
}

// NewHTTP posts JSON payloads to the configured webhook URL. An empty URL
// disables delivery so dev pods can run without a dispatch endpoint.
func NewHTTP(cfgsvc config.IService) IService {
	return &httpService{
		CfgSvc: cfgsvc,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (svc *httpService) Post(payload map[string]interface{}) error {
	url := svc.CfgSvc.GetAlerterWebhookURL()
	if url == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return xerrors.Errorf("marshalling webhook payload: %w", err)
	}

	resp, err := svc.client.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return xerrors.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return xerrors.Errorf("webhook endpoint returned %d", resp.StatusCode)
	}

	return nil
}
