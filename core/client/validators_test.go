package client

import "testing"

func TestValidCPF(t *testing.T) {
	tests := []struct {
		name string
		cpf  string
		want bool
	}{
		{name: "valid", cpf: "52998224725", want: true},
		{name: "valid 2", cpf: "11144477735", want: true},
		{name: "wrong first check digit", cpf: "52998224735", want: false},
		{name: "wrong second check digit", cpf: "52998224726", want: false},
		{name: "too short", cpf: "5299822472", want: false},
		{name: "too long", cpf: "529982247255", want: false},
		{name: "empty", cpf: "", want: false},
		{name: "non-digits", cpf: "529a8224725", want: false},
		{name: "formatted input is rejected", cpf: "529.982.247-25", want: false},
		{name: "repeated digits", cpf: "11111111111", want: false},
		{name: "all zeros", cpf: "00000000000", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidCPF(tt.cpf); got != tt.want {
				t.Errorf("ValidCPF(%q) = %v; want %v", tt.cpf, got, tt.want)
			}
		})
	}
}
