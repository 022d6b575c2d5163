package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"tailor-pos/internal/store"
)

const maxLabelCopies = 100

var ErrPrinterDisabled = errors.New("label printer is not configured")

// PrinterService sends barcode labels to the label printer bridge on the
// shop network
type PrinterService struct {
	Store   store.Reader
	client  *http.Client
	baseURL string
}

type labelRequest struct {
	Line1  string `json:"line1"`
	Line2  string `json:"line2"`
	Font1  string `json:"font1"`
	Font2  string `json:"font2"`
	Copies int    `json:"copies"`
}

type printResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func NewPrinterService(st store.Reader, baseURL string) *PrinterService {
	return &PrinterService{
		Store:   st,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
	}
}

// PrintItemLabel prints copies of an item's barcode label. Labels go out
// two per sheet; an odd count finishes with a single label.
func (s *PrinterService) PrintItemLabel(ctx context.Context, itemID string, copies int) error {
	if s.baseURL == "" {
		return ErrPrinterDisabled
	}
	if copies < 1 {
		copies = 1
	}
	if copies > maxLabelCopies {
		return invalid("copies", "at most %d labels per request", maxLabelCopies)
	}

	item, err := s.Store.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	req := labelRequest{
		Line1: item.Barcode,
		Line2: fmt.Sprintf("%s %s", item.Name, item.SellingPrice.StringFixed(2)),
		Font1: "5",
		Font2: "4",
	}

	if pairs := copies / 2; pairs > 0 {
		req.Copies = pairs
		if err := s.send(ctx, "/print-2up", req); err != nil {
			return err
		}
	}
	if copies%2 == 1 {
		req.Copies = 1
		if err := s.send(ctx, "/print-full", req); err != nil {
			return err
		}
	}
	log.Printf("[Printer] %d label(s) for %s (%s)", copies, item.Name, item.Barcode)
	return nil
}

func (s *PrinterService) send(ctx context.Context, endpoint string, req labelRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal print request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: printer unreachable: %v", store.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var printResp printResponse
	if err := json.NewDecoder(resp.Body).Decode(&printResp); err != nil {
		return fmt.Errorf("failed to decode print response: %w", err)
	}
	if !printResp.Success {
		return fmt.Errorf("print failed: %s", printResp.Message)
	}
	return nil
}
