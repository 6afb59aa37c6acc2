package upnp

import (
	"encoding/xml"
	"fmt"
	"html"
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"
)

// DIDLLite represents DIDL-Lite metadata format used by UPnP.
type DIDLLite struct {
	XMLName xml.Name   `xml:"DIDL-Lite"`
	NS      string     `xml:"xmlns,attr"`
	DC      string     `xml:"xmlns:dc,attr"`
	UPnP    string     `xml:"xmlns:upnp,attr"`
	Items   []DIDLItem `xml:"item"`
}

// DIDLItem represents a single item in DIDL-Lite metadata.
type DIDLItem struct {
	ID         string  `xml:"id,attr"`
	ParentID   string  `xml:"parentID,attr"`
	Restricted string  `xml:"restricted,attr"`
	Title      string  `xml:"dc:title"`
	Class      string  `xml:"upnp:class"`
	Res        DIDLRes `xml:"res"`
}

// DIDLRes is the resource element pointing at the media.
type DIDLRes struct {
	ProtocolInfo string `xml:"protocolInfo,attr"`
	Duration     string `xml:"duration,attr,omitempty"`
	URI          string `xml:",chardata"`
}

// videoMetadata builds DIDL-Lite metadata describing a single video item.
// Most TV renderers refuse SetAVTransportURI without it.
func videoMetadata(uri, title string, duration time.Duration) (string, error) {
	if title == "" {
		title = titleFromURI(uri)
	}

	doc := DIDLLite{
		NS:   "urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/",
		DC:   "http://purl.org/dc/elements/1.1/",
		UPnP: "urn:schemas-upnp-org:metadata-1-0/upnp/",
		Items: []DIDLItem{{
			ID:         "0",
			ParentID:   "-1",
			Restricted: "1",
			Title:      title,
			Class:      "object.item.videoItem",
			Res: DIDLRes{
				ProtocolInfo: "http-get:*:" + mimeType(uri) + ":*",
				URI:          uri,
			},
		}},
	}
	if duration > 0 {
		doc.Items[0].Res.Duration = formatDuration(duration) + ".000"
	}

	out, err := xml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal didl-lite: %w", err)
	}
	return string(out), nil
}

// parseTitle extracts dc:title from DIDL-Lite metadata, ignoring namespace
// prefixes.
func parseTitle(metadata string) string {
	return extractXMLElement(html.UnescapeString(metadata), "title")
}

// extractXMLElement extracts content from an XML element, ignoring namespace prefixes.
func extractXMLElement(doc, localName string) string {
	re := regexp.MustCompile(`<(?:\w+:)?` + localName + `[^>]*>([^<]*)</(?:\w+:)?` + localName + `>`)
	matches := re.FindStringSubmatch(doc)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return ""
}

var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".ts":   "video/mp2t",
}

// mimeType guesses the video MIME type from the URI's extension.
func mimeType(uri string) string {
	p := uri
	if u, err := url.Parse(uri); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if t, ok := videoTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); strings.HasPrefix(t, "video/") {
		return t
	}
	return "video/mp4"
}

func titleFromURI(uri string) string {
	p := uri
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		p = u.Path
	}
	base := path.Base(p)
	if base == "." || base == "/" {
		return uri
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// formatDuration formats a duration as H:MM:SS.
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// parseDuration parses a duration string (H:MM:SS with optional fraction).
func parseDuration(s string) time.Duration {
	var h, m int
	var sec float64
	if _, err := fmt.Sscanf(s, "%d:%d:%f", &h, &m, &sec); err != nil {
		return 0
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec*float64(time.Second))
}
