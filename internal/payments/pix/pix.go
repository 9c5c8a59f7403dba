// Package pix builds static BR Code payloads (the PIX copy-and-paste
// string) and renders them as QR code PNGs.
package pix

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	idPayloadFormat       = "00"
	idMerchantAccountInfo = "26"
	idMerchantCategory    = "52"
	idCurrency            = "53"
	idAmount              = "54"
	idCountryCode         = "58"
	idMerchantName        = "59"
	idMerchantCity        = "60"
	idAdditionalData      = "62"
	idCRC                 = "63"

	gui           = "br.gov.bcb.pix"
	currencyBRL   = "986"
	maxNameLen    = 25
	maxCityLen    = 15
	maxKeyLen     = 77
	defaultTxID   = "***"
	payloadFormat = "01"
)

// Payload builds the EMV-encoded BR Code string for a static PIX charge.
func Payload(key string, amount decimal.Decimal, merchantName, merchantCity string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("pix key is required")
	}
	if len(key) > maxKeyLen {
		return "", fmt.Errorf("pix key exceeds %d characters", maxKeyLen)
	}

	var b strings.Builder
	writeField(&b, idPayloadFormat, payloadFormat)

	var account strings.Builder
	writeField(&account, "00", gui)
	writeField(&account, "01", key)
	writeField(&b, idMerchantAccountInfo, account.String())

	writeField(&b, idMerchantCategory, "0000")
	writeField(&b, idCurrency, currencyBRL)
	if amount.IsPositive() {
		writeField(&b, idAmount, amount.StringFixed(2))
	}
	writeField(&b, idCountryCode, "BR")
	writeField(&b, idMerchantName, truncate(merchantName, maxNameLen))
	writeField(&b, idMerchantCity, truncate(merchantCity, maxCityLen))

	var additional strings.Builder
	writeField(&additional, "05", defaultTxID)
	writeField(&b, idAdditionalData, additional.String())

	// The CRC covers everything up to and including its own id and length.
	b.WriteString(idCRC + "04")
	payload := b.String()
	return payload + fmt.Sprintf("%04X", crc16(payload)), nil
}

// QRCodePNG renders the payload as a PNG image.
func QRCodePNG(payload string, size int) ([]byte, error) {
	return qrcode.Encode(payload, qrcode.Medium, size)
}

func writeField(b *strings.Builder, id, value string) {
	fmt.Fprintf(b, "%s%02d%s", id, len(value), value)
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// crc16 is CRC-16/CCITT-FALSE as mandated by the BR Code spec.
func crc16(s string) uint16 {
	crc := uint16(0xFFFF)
	for _, c := range []byte(s) {
		crc ^= uint16(c) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
