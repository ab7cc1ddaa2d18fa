package models

import "time"

// QR code types.
const (
	QRTypeStatic  = "static"
	QRTypeDynamic = "dynamic"
)

// Content variants.
const (
	ContentTypeURL  = "url"
	ContentTypeText = "text"
	ContentTypeWifi = "wifi"
)

// MaxLogoSizeRatio caps how much of the symbol a logo may cover.
const MaxLogoSizeRatio = 0.25

// DefaultLogoSizeRatio is applied when the client omits the ratio.
const DefaultLogoSizeRatio = 0.15

// WifiPayload holds the network credentials encoded by a wifi QR code.
type WifiPayload struct {
	SSID       string `json:"ssid" firestore:"ssid"`
	Password   string `json:"password,omitempty" firestore:"password"`
	Encryption string `json:"encryption,omitempty" firestore:"encryption"` // WPA, WEP or nopass
	Hidden     bool   `json:"hidden,omitempty" firestore:"hidden"`
}

// QRContent is a tagged variant: exactly one of URL, Text or Wifi is set,
// discriminated by Type.
type QRContent struct {
	Type string       `json:"type" firestore:"type"`
	URL  string       `json:"url,omitempty" firestore:"url"`
	Text string       `json:"text,omitempty" firestore:"text"`
	Wifi *WifiPayload `json:"wifi,omitempty" firestore:"wifi"`
}

// QRDesign carries the cosmetic attributes of a code. The backend only
// validates the logo source and clamps the logo ratio; rendering is client-side.
type QRDesign struct {
	Foreground    string  `json:"foreground,omitempty" firestore:"foreground"`
	Background    string  `json:"background,omitempty" firestore:"background"`
	Logo          string  `json:"logo,omitempty" firestore:"logo"`
	LogoSizeRatio float64 `json:"logoSizeRatio,omitempty" firestore:"logoSizeRatio"`
}

// QRCode is one created code, stored under users/{uid}/qrcodes/{qrId}.
// Immutable after creation. Slug is set only for dynamic codes.
type QRCode struct {
	ID          string     `json:"id" firestore:"-"` // client-generated document ID
	UID         string     `json:"uid" firestore:"uid"`
	Name        string     `json:"name" firestore:"name"`
	Content     QRContent  `json:"content" firestore:"content"`
	Design      QRDesign   `json:"design" firestore:"design"`
	Type        string     `json:"type" firestore:"type"`
	Slug        string     `json:"slug,omitempty" firestore:"slug"`
	TrialEndsAt *time.Time `json:"trialEndsAt,omitempty" firestore:"trialEndsAt"`
	CreatedAt   time.Time  `json:"createdAt" firestore:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}
