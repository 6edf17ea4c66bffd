package vnpay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/decode-ex/vnpay-sdk/internal/strings2"
)

// Bank is one entry of the gateway's bank directory, used to render a
// bank-selection page so vnp_BankCode can be pinned before redirecting.
type Bank struct {
	Code         string `json:"bank_code"`
	Name         string `json:"bank_name"`
	LogoURL      string `json:"logo_link"`
	Type         int    `json:"bank_type"`
	DisplayOrder int    `json:"display_order"`
}

// GetBankList fetches the banks available to the configured terminal.
// The directory endpoint is unsigned. Logo links are returned absolute;
// relative ones are resolved against the environment host.
func (cli *Client) GetBankList(ctx context.Context) ([]Bank, error) {
	form := url.Values{}
	form.Set("tmn_code", cli.conf.TmnCode)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, _BankListPath.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("generate request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := cli.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s, body %s", ErrUnexpectedStatus, resp.Status, strings2.FromBytesNoAlloc(body))
	}

	var banks []Bank
	if err := json.NewDecoder(resp.Body).Decode(&banks); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}

	for i := range banks {
		if banks[i].LogoURL == "" {
			continue
		}
		logo, err := url.Parse(banks[i].LogoURL)
		if err != nil {
			continue
		}
		banks[i].LogoURL = cli.base.ResolveReference(logo).String()
	}
	return banks, nil
}
