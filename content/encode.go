package content

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/esimov/qrstyle/utils"
)

// vCardEOL is the line terminator mandated by RFC 2426.
const vCardEOL = "\r\n"

var (
	schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)
	// opaqueRe matches scheme:rest links without an authority, e.g. mailto:.
	// A digit after the colon is a port (example.com:8080) rather than a scheme.
	opaqueRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*:[^/0-9]`)
	emailRe  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe  = regexp.MustCompile(`^\+?[0-9 \-()]+$`)

	wifiEscaper  = strings.NewReplacer(`\`, `\\`, `;`, `\;`, `,`, `\,`, `"`, `\"`)
	vCardEscaper = strings.NewReplacer(`\`, `\\`, `;`, `\;`, `,`, `\,`, "\r\n", `\n`, "\n", `\n`)
)

// Encode returns the canonical payload for the descriptor.
// The result depends only on the descriptor value.
func Encode(d Descriptor) (string, error) {
	switch d := d.(type) {
	case Link:
		return encodeLink(d)
	case PlainText:
		return encodeText(d)
	case Email:
		return encodeEmail(d)
	case Phone:
		return encodePhone(d)
	case SMS:
		return encodeSMS(d)
	case WiFi:
		return encodeWiFi(d)
	case ContactCard:
		return encodeContact(d)
	case GeoPoint:
		return encodeGeo(d)
	case nil:
		return "", invalid("type", ErrEmpty)
	default:
		return "", invalid("type", fmt.Errorf("%w: %T", ErrUnknownKind, d))
	}
}

func encodeLink(l Link) (string, error) {
	raw := strings.TrimSpace(l.URL)
	if raw == "" {
		return "", invalid("url", ErrInvalidURL)
	}
	if !schemeRe.MatchString(raw) {
		if opaqueRe.MatchString(raw) {
			return "", invalid("url", fmt.Errorf("%w: links need a scheme://host form", ErrInvalidURL))
		}
		raw = "https://" + raw
	}
	if !utils.IsValidUrl(raw) {
		return "", invalid("url", ErrInvalidURL)
	}
	return raw, nil
}

func encodeText(t PlainText) (string, error) {
	if len(t.Text) == 0 {
		return "", invalid("text", ErrEmpty)
	}
	return t.Text, nil
}

func encodeEmail(e Email) (string, error) {
	addr := strings.TrimSpace(e.Address)
	if !emailRe.MatchString(addr) {
		return "", invalid("address", ErrInvalidEmail)
	}

	var params []string
	if e.Subject != "" {
		params = append(params, "subject="+escapeComponent(e.Subject))
	}
	if e.Body != "" {
		params = append(params, "body="+escapeComponent(e.Body))
	}

	payload := "mailto:" + addr
	if len(params) > 0 {
		payload += "?" + strings.Join(params, "&")
	}
	return payload, nil
}

func encodePhone(p Phone) (string, error) {
	num, err := phoneNumber(p.Number)
	if err != nil {
		return "", err
	}
	return "tel:" + num, nil
}

func encodeSMS(s SMS) (string, error) {
	num, err := phoneNumber(s.Number)
	if err != nil {
		return "", err
	}
	payload := "sms:" + num
	if s.Message != "" {
		payload += "?body=" + escapeComponent(s.Message)
	}
	return payload, nil
}

func phoneNumber(n string) (string, error) {
	n = strings.TrimSpace(n)
	if !phoneRe.MatchString(n) {
		return "", invalid("number", ErrInvalidPhone)
	}
	return n, nil
}

func encodeWiFi(w WiFi) (string, error) {
	if w.SSID == "" {
		return "", invalid("ssid", ErrMissingField)
	}

	var token string
	switch w.Security {
	case WEP:
		token = "WEP"
	case WPA:
		token = "WPA"
	case Open, "":
		token = "nopass"
	default:
		return "", invalid("security", fmt.Errorf("%w: %q", ErrUnsupportedSecurity, w.Security))
	}

	return fmt.Sprintf("WIFI:T:%s;S:%s;P:%s;H:%t;",
		token,
		wifiEscaper.Replace(w.SSID),
		wifiEscaper.Replace(w.Password),
		w.Hidden,
	), nil
}

func encodeContact(c ContactCard) (string, error) {
	first := strings.TrimSpace(c.FirstName)
	if first == "" {
		return "", invalid("firstName", ErrMissingField)
	}
	last := strings.TrimSpace(c.LastName)

	lines := []string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"N:" + vCardEscaper.Replace(last) + ";" + vCardEscaper.Replace(first),
		"FN:" + vCardEscaper.Replace(first) + " " + vCardEscaper.Replace(last),
	}

	optional := []struct {
		prefix, value, suffix string
	}{
		{"EMAIL:", c.Email, ""},
		{"TEL:", c.Phone, ""},
		{"ORG:", c.Organization, ""},
		{"TITLE:", c.Title, ""},
		// Free-form address goes into the street component.
		{"ADR:;;", c.Address, ";;;;"},
		{"URL:", c.Website, ""},
	}
	for _, f := range optional {
		v := strings.TrimSpace(f.value)
		if v == "" {
			continue
		}
		lines = append(lines, f.prefix+vCardEscaper.Replace(v)+f.suffix)
	}
	lines = append(lines, "END:VCARD")

	return strings.Join(lines, vCardEOL), nil
}

func encodeGeo(g GeoPoint) (string, error) {
	if label := strings.TrimSpace(g.Label); label != "" {
		return "geo:0,0?q=" + escapeComponent(label), nil
	}
	// Negated so that NaN is rejected too.
	if !(g.Latitude >= -90 && g.Latitude <= 90) {
		return "", invalid("latitude", ErrInvalidCoordinates)
	}
	if !(g.Longitude >= -180 && g.Longitude <= 180) {
		return "", invalid("longitude", ErrInvalidCoordinates)
	}
	return "geo:" + formatCoord(g.Latitude) + "," + formatCoord(g.Longitude), nil
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// escapeComponent percent-encodes s for use inside a URI query,
// encoding spaces as %20 rather than '+'.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
