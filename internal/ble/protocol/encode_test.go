package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeProtocolA(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want [][]byte
	}{
		{
			name: "power on",
			cmd:  SetPower{On: true},
			want: [][]byte{{0x7e, 0x00, 0x04, 0xf0, 0x00, 0x01, 0xff, 0x00, 0xef}},
		},
		{
			name: "power off",
			cmd:  SetPower{On: false},
			want: [][]byte{{0x7e, 0x00, 0x04, 0x00, 0x00, 0x00, 0xff, 0x00, 0xef}},
		},
		{
			name: "red",
			cmd:  SetColor{R: 0xff},
			want: [][]byte{{0x7e, 0x00, 0x05, 0x03, 0xff, 0x00, 0x00, 0x00, 0xef}},
		},
		{
			name: "brightness 75",
			cmd:  SetBrightness{Percent: 75},
			want: [][]byte{{0x7e, 0x00, 0x01, 0x4b, 0x00, 0x00, 0x00, 0x00, 0xef}},
		},
		{
			name: "warm white",
			cmd:  SetWarmWhite{Level: 191},
			want: [][]byte{{0x7e, 0x00, 0x05, 0x02, 0xbf, 0xbf, 0xbf, 0x00, 0xef}},
		},
		{
			name: "effect with speed",
			cmd:  SetEffect{Code: 0x87, Speed: 50},
			want: [][]byte{
				{0x7e, 0x00, 0x03, 0x87, 0x03, 0x00, 0x00, 0x00, 0xef},
				{0x7e, 0x00, 0x02, 0x32, 0x00, 0x00, 0x00, 0x00, 0xef},
			},
		},
		{
			name: "effect speed clamped",
			cmd:  SetEffect{Code: 0x95, Speed: 200},
			want: [][]byte{
				{0x7e, 0x00, 0x03, 0x95, 0x03, 0x00, 0x00, 0x00, 0xef},
				{0x7e, 0x00, 0x02, 0x64, 0x00, 0x00, 0x00, 0x00, 0xef},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(ProtocolA, tt.cmd)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			assertFrames(t, got, tt.want)
		})
	}
}

func TestEncodeProtocolB(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want [][]byte
	}{
		{"power on", SetPower{On: true}, [][]byte{{0xcc, 0x23, 0x33}}},
		{"power off", SetPower{On: false}, [][]byte{{0xcc, 0x24, 0x33}}},
		{"color", SetColor{R: 0x10, G: 0x20, B: 0x30}, [][]byte{{0x56, 0x10, 0x20, 0x30, 0x00, 0xf0, 0xaa}}},
		{"brightness", SetBrightness{Percent: 50}, [][]byte{{0x56, 0x32, 0x32, 0x32, 0x00, 0xf0, 0xaa}}},
		{"warm white", SetWarmWhite{Level: 0x80}, [][]byte{{0x56, 0x80, 0x80, 0x00, 0x0f, 0xaa}}},
		{"mode", SetMode{Code: 0x25}, [][]byte{{0xbb, 0x25, 0x44}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(ProtocolB, tt.cmd)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			assertFrames(t, got, tt.want)
		})
	}
}

func TestEncodeBrightnessClampOnlyOnProtocolA(t *testing.T) {
	for v := 0; v <= 255; v++ {
		a, err := Encode(ProtocolA, SetBrightness{Percent: uint8(v)})
		if err != nil {
			t.Fatalf("Encode(A, %d) error = %v", v, err)
		}
		wantA := uint8(v)
		if wantA > 100 {
			wantA = 100
		}
		assertFrames(t, a, [][]byte{{0x7e, 0x00, 0x01, wantA, 0x00, 0x00, 0x00, 0x00, 0xef}})

		b, err := Encode(ProtocolB, SetBrightness{Percent: uint8(v)})
		if err != nil {
			t.Fatalf("Encode(B, %d) error = %v", v, err)
		}
		vb := uint8(v)
		assertFrames(t, b, [][]byte{{0x56, vb, vb, vb, 0x00, 0xf0, 0xaa}})
	}
}

func TestEncodePowerIsConstant(t *testing.T) {
	for _, p := range []Profile{ProtocolA, ProtocolB} {
		for _, on := range []bool{true, false} {
			first, _ := Encode(p, SetPower{On: on})
			// Interleave other commands; power frames must not change.
			_, _ = Encode(p, SetColor{R: 1, G: 2, B: 3})
			_, _ = Encode(p, SetBrightness{Percent: 42})
			second, _ := Encode(p, SetPower{On: on})
			assertFrames(t, second, first)
		}
	}
}

func TestEncodeUnsupported(t *testing.T) {
	if _, err := Encode(ProtocolA, SetMode{Code: 0x25}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Encode(A, SetMode) error = %v, want ErrUnsupported", err)
	}
	if _, err := Encode(ProtocolB, SetEffect{Code: 0x87, Speed: 10}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Encode(B, SetEffect) error = %v, want ErrUnsupported", err)
	}
	if _, err := Encode(Profile(0), SetPower{On: true}); err == nil {
		t.Error("Encode() with invalid profile should fail")
	}
}

func TestEncodeReturnsFreshBuffers(t *testing.T) {
	first, _ := Encode(ProtocolB, SetPower{On: true})
	first[0][0] = 0x00
	second, _ := Encode(ProtocolB, SetPower{On: true})
	if second[0][0] != 0xcc {
		t.Errorf("second frame starts with 0x%02x, want 0xcc", second[0][0])
	}
}

func assertFrames(t *testing.T, got, want [][]byte) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d frames, want %d", len(got), len(want))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("frame %d = % x, want % x", i, got[i], want[i])
		}
	}
}
