package upnp

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AVTransportService is the URN of the transport control service.
const AVTransportService = "urn:schemas-upnp-org:service:AVTransport:1"

// Arg is a single SOAP action argument. Renderers are strict about argument
// order, so actions take an ordered slice rather than a map.
type Arg struct {
	Name  string
	Value string
}

// SOAPClient makes SOAP requests to media renderers.
type SOAPClient struct {
	httpClient *http.Client
}

// NewSOAPClient creates a new SOAP client.
func NewSOAPClient() *SOAPClient {
	return &SOAPClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Fault is a UPnP error returned in a SOAP fault body.
type Fault struct {
	Code        int    `xml:"Body>Fault>detail>UPnPError>errorCode"`
	Description string `xml:"Body>Fault>detail>UPnPError>errorDescription"`
	Status      int    `xml:"-"`
}

func (f *Fault) Error() string {
	if f.Description == "" {
		return fmt.Sprintf("upnp error %d (status %d)", f.Code, f.Status)
	}
	return fmt.Sprintf("upnp error %d: %s", f.Code, f.Description)
}

// Call invokes action on the service at controlURL and returns the raw
// response envelope.
func (c *SOAPClient) Call(ctx context.Context, controlURL, service, action string, args []Arg) ([]byte, error) {
	body := c.buildSOAPBody(service, action, args)

	req, err := http.NewRequestWithContext(ctx, "POST", controlURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPAction", fmt.Sprintf("\"%s#%s\"", service, action))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("soap request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		fault := &Fault{Status: resp.StatusCode}
		if xml.Unmarshal(respBody, fault) == nil && fault.Code != 0 {
			return nil, fmt.Errorf("%s: %w", action, fault)
		}
		return nil, fmt.Errorf("soap error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// buildSOAPBody constructs the SOAP envelope.
func (c *SOAPClient) buildSOAPBody(service, action string, args []Arg) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	buf.WriteString(`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">`)
	buf.WriteString(`<s:Body>`)
	buf.WriteString(fmt.Sprintf(`<u:%s xmlns:u="%s">`, action, service))

	for _, a := range args {
		buf.WriteString(fmt.Sprintf("<%s>%s</%s>", a.Name, xmlEscape(a.Value), a.Name))
	}

	buf.WriteString(fmt.Sprintf(`</u:%s>`, action))
	buf.WriteString(`</s:Body>`)
	buf.WriteString(`</s:Envelope>`)

	return buf.Bytes()
}

// xmlEscape escapes special XML characters.
func xmlEscape(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
