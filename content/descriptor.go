// Package content turns a typed content description into the canonical
// payload string that gets encoded into the QR symbol.
//
// Every supported content kind is a distinct Go type implementing the sealed
// Descriptor interface, so a value always carries exactly one kind of content
// and only the fields relevant to it.
package content

// Descriptor is implemented only by the content types declared in this package.
type Descriptor interface {
	// Kind returns the tag used in the JSON form of the descriptor.
	Kind() string
	descriptor()
}

// Link is a web address. Without a scheme, https:// is assumed. Opaque
// links such as mailto: are rejected; Email, Phone and SMS cover them.
type Link struct {
	URL string `json:"url"`
}

// PlainText is encoded verbatim.
type PlainText struct {
	Text string `json:"text"`
}

// Email produces a mailto: link. Subject and Body are optional.
type Email struct {
	Address string `json:"address"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`
}

// Phone produces a tel: link.
type Phone struct {
	Number string `json:"number"`
}

// SMS produces an sms: link with an optional prefilled message.
type SMS struct {
	Number  string `json:"number"`
	Message string `json:"message,omitempty"`
}

// Security is the authentication type of a WiFi network.
type Security string

const (
	WEP  Security = "WEP"
	WPA  Security = "WPA"
	Open Security = "open"
)

// WiFi describes the credentials of a wireless network.
type WiFi struct {
	SSID     string   `json:"ssid"`
	Password string   `json:"password,omitempty"`
	Security Security `json:"security"`
	Hidden   bool     `json:"hidden"`
}

// ContactCard is rendered as a vCard 3.0. Only FirstName is mandatory.
type ContactCard struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName,omitempty"`
	Organization string `json:"organization,omitempty"`
	Title        string `json:"title,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Website      string `json:"website,omitempty"`
	Address      string `json:"address,omitempty"`
}

// GeoPoint is a geographic location. When Label is set the payload becomes
// a place query instead of raw coordinates.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Label     string  `json:"label,omitempty"`
}

// Kind tags, also used as the "type" discriminator in JSON.
const (
	KindLink    = "link"
	KindText    = "text"
	KindEmail   = "email"
	KindPhone   = "phone"
	KindSMS     = "sms"
	KindWiFi    = "wifi"
	KindContact = "vcard"
	KindGeo     = "geo"
)

func (Link) Kind() string        { return KindLink }
func (PlainText) Kind() string   { return KindText }
func (Email) Kind() string       { return KindEmail }
func (Phone) Kind() string       { return KindPhone }
func (SMS) Kind() string         { return KindSMS }
func (WiFi) Kind() string        { return KindWiFi }
func (ContactCard) Kind() string { return KindContact }
func (GeoPoint) Kind() string    { return KindGeo }

func (Link) descriptor()        {}
func (PlainText) descriptor()   {}
func (Email) descriptor()       {}
func (Phone) descriptor()       {}
func (SMS) descriptor()         {}
func (WiFi) descriptor()        {}
func (ContactCard) descriptor() {}
func (GeoPoint) descriptor()    {}
