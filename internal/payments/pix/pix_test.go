package pix

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestPayloadShape(t *testing.T) {
	p, err := Payload("pix@jurisconnect.com.br", decimal.NewFromFloat(150.50), "JurisConnect", "Sao Paulo")
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}

	if !strings.HasPrefix(p, "000201") {
		t.Errorf("payload does not start with the format indicator: %s", p)
	}
	if !strings.Contains(p, "br.gov.bcb.pix") {
		t.Error("payload missing the PIX GUI")
	}
	if !strings.Contains(p, "540615") {
		t.Errorf("payload missing amount field 150.50: %s", p)
	}
	if !strings.Contains(p, "5802BR") {
		t.Error("payload missing the country code")
	}
	// 6304 + 4 hex digits at the very end.
	idx := strings.LastIndex(p, "6304")
	if idx != len(p)-8 {
		t.Errorf("CRC field not at the payload tail: %s", p)
	}
}

func TestPayloadOmitsZeroAmount(t *testing.T) {
	p, err := Payload("11999990000", decimal.Zero, "JurisConnect", "Sao Paulo")
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if strings.Contains(p, "5406") {
		t.Error("zero amount must be omitted for an open-valued charge")
	}
}

func TestPayloadRequiresKey(t *testing.T) {
	if _, err := Payload("", decimal.NewFromInt(10), "JurisConnect", "Sao Paulo"); err == nil {
		t.Fatal("expected error for empty pix key")
	}
}

func TestCRC16KnownVector(t *testing.T) {
	// CRC-16/CCITT-FALSE of "123456789" is 0x29B1.
	if got := crc16("123456789"); got != 0x29B1 {
		t.Errorf("crc16 = %04X, want 29B1", got)
	}
}

func TestQRCodePNG(t *testing.T) {
	p, err := Payload("pix@jurisconnect.com.br", decimal.NewFromInt(100), "JurisConnect", "Sao Paulo")
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	png, err := QRCodePNG(p, 256)
	if err != nil {
		t.Fatalf("QRCodePNG: %v", err)
	}
	if len(png) == 0 || string(png[1:4]) != "PNG" {
		t.Error("output is not a PNG")
	}
}
