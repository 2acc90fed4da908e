package sim

import (
	"strings"
	"testing"
)

func TestDecodeSteps(t *testing.T) {
	input := "# comment\n\n{\"op\":\"advance\",\"blocks\":3}\n  {\"op\":\"loyalty-lock\",\"user\":\"0x01\",\"enabled\":true}  \n"
	steps, err := DecodeSteps(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeSteps: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0].Blocks != 3 || !steps[1].Enabled {
		t.Fatalf("unexpected steps: %+v", steps)
	}
}

func TestDecodeStepsErrors(t *testing.T) {
	cases := map[string]string{
		"unknown field": `{"op":"swap","amount_in":"5"}`,
		"missing op":    `{"token":"0x01"}`,
		"bad json":      `{"op":`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeSteps(strings.NewReader("\n" + input + "\n"))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), "line 2") {
				t.Fatalf("error should name the line: %v", err)
			}
		})
	}
}

func TestParseAddress(t *testing.T) {
	if _, err := ParseAddress("token", ""); err == nil {
		t.Fatalf("expected error for empty address")
	}
	if _, err := ParseAddress("token", "0x123"); err == nil {
		t.Fatalf("expected error for short address")
	}
	addr, err := ParseAddress("token", " 0x1111111111111111111111111111111111111111 ")
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	if addr.Hex() != "0x1111111111111111111111111111111111111111" {
		t.Fatalf("unexpected address %s", addr.Hex())
	}
}
