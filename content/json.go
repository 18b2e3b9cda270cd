package content

import (
	"encoding/json"
	"fmt"
)

type envelope struct {
	Type string `json:"type"`
}

// Unmarshal decodes the JSON form of a descriptor. The "type" member selects
// the variant; the remaining members are the fields of that variant.
func Unmarshal(data []byte) (Descriptor, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("could not decode content: %w", err)
	}

	var (
		d   Descriptor
		err error
	)
	switch env.Type {
	case KindLink:
		var v Link
		err = json.Unmarshal(data, &v)
		d = v
	case KindText:
		var v PlainText
		err = json.Unmarshal(data, &v)
		d = v
	case KindEmail:
		var v Email
		err = json.Unmarshal(data, &v)
		d = v
	case KindPhone:
		var v Phone
		err = json.Unmarshal(data, &v)
		d = v
	case KindSMS:
		var v SMS
		err = json.Unmarshal(data, &v)
		d = v
	case KindWiFi:
		var v WiFi
		err = json.Unmarshal(data, &v)
		d = v
	case KindContact:
		var v ContactCard
		err = json.Unmarshal(data, &v)
		d = v
	case KindGeo:
		var v GeoPoint
		err = json.Unmarshal(data, &v)
		d = v
	default:
		return nil, invalid("type", fmt.Errorf("%w: %q", ErrUnknownKind, env.Type))
	}
	if err != nil {
		return nil, fmt.Errorf("could not decode %s content: %w", env.Type, err)
	}
	return d, nil
}

// Marshal encodes a descriptor together with its "type" discriminator.
func Marshal(d Descriptor) ([]byte, error) {
	if d == nil {
		return nil, invalid("type", ErrEmpty)
	}
	fields, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(fields, &m); err != nil {
		return nil, err
	}
	kind, _ := json.Marshal(d.Kind())
	m["type"] = kind

	return json.Marshal(m)
}
