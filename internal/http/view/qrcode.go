package view

import (
	"encoding/base64"

	qrcode "github.com/skip2/go-qrcode"
)

const defaultQRSize = 256

// QRDataURI encodes text as a PNG QR code and returns it as a data URI.
func QRDataURI(text string, size int) (string, error) {
	if size <= 0 {
		size = defaultQRSize
	}
	png, err := qrcode.Encode(text, qrcode.Medium, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
