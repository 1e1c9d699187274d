package bitget

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/Duc-Dopaminne-1/hummingbot/errs"
	"github.com/Duc-Dopaminne-1/hummingbot/internal/timesync"
)

// Signer computes Bitget authentication signatures for REST headers and
// websocket login frames. The clock is injected so the signing timestamp can
// be corrected for venue/client drift; signing never reads the wall clock.
type Signer struct {
	apiKey     string
	secret     string
	passphrase string
	clock      timesync.Clock
}

// NewSigner validates the credentials and returns a signer bound to the clock.
func NewSigner(apiKey, secret, passphrase string, clock timesync.Clock) (*Signer, error) {
	apiKey = strings.TrimSpace(apiKey)
	secret = strings.TrimSpace(secret)
	passphrase = strings.TrimSpace(passphrase)
	if apiKey == "" || secret == "" || passphrase == "" {
		return nil, errs.New(venueName, errs.CodeConfiguration,
			errs.WithMessage("api key, secret, and passphrase must be non-empty"))
	}
	if clock == nil {
		return nil, errs.New(venueName, errs.CodeConfiguration,
			errs.WithMessage("signer requires a synchronizable clock"))
	}
	return &Signer{apiKey: apiKey, secret: secret, passphrase: passphrase, clock: clock}, nil
}

// Sign produces the deterministic signature over the canonical string for the
// given millisecond-epoch timestamp, method, request path (with query already
// appended for GET requests), and body.
func (s *Signer) Sign(timestamp, method, requestPath, body string) string {
	return s.signPrehash(prehash(timestamp, method, requestPath, body))
}

// RESTHeaders builds the authentication header set for one signed request.
// For GET requests the raw query string must be passed so it becomes part of
// the canonical path; POST bodies are signed verbatim.
func (s *Signer) RESTHeaders(method, path, query, body string) map[string]string {
	timestamp := strconv.FormatInt(s.clock.Now().UnixMilli(), 10)
	canonicalPath := path
	if strings.EqualFold(method, "GET") && query != "" {
		canonicalPath += "?" + query
	}
	return map[string]string{
		"ACCESS-KEY":        s.apiKey,
		"ACCESS-SIGN":       s.Sign(timestamp, method, canonicalPath, body),
		"ACCESS-TIMESTAMP":  timestamp,
		"ACCESS-PASSPHRASE": s.passphrase,
		"Content-Type":      "application/json",
		"locale":            "en-US",
	}
}

// WSLoginArgs carries the websocket login frame argument.
type WSLoginArgs struct {
	APIKey     string `json:"apiKey"`
	Passphrase string `json:"passphrase"`
	Timestamp  string `json:"timestamp"`
	Sign       string `json:"sign"`
}

// WSLogin builds the websocket login payload. The variant signs a
// second-epoch timestamp over a fixed GET /user/verify canonical string with
// an empty body.
func (s *Signer) WSLogin() WSLoginArgs {
	timestamp := strconv.FormatInt(s.clock.Now().Unix(), 10)
	return WSLoginArgs{
		APIKey:     s.apiKey,
		Passphrase: s.passphrase,
		Timestamp:  timestamp,
		Sign:       s.Sign(timestamp, "GET", wsLoginPath, ""),
	}
}

func (s *Signer) signPrehash(message string) string {
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// prehash assembles the canonical string. Absent bodies serialize as the
// literal "None"/"null"/"none" on some client stacks; all collapse to empty.
func prehash(timestamp, method, requestPath, body string) string {
	switch body {
	case "None", "null", "none":
		body = ""
	}
	return timestamp + strings.ToUpper(method) + requestPath + body
}
