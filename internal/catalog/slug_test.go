package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Black Lotus", "black-lotus"},
		{"accents", "Dragão Branco de Olhos Azuis", "dragao-branco-de-olhos-azuis"},
		{"punctuation", "Urza's Saga #23", "urza-s-saga-23"},
		{"collapsed separators", "Booster  Box --- 2024", "booster-box-2024"},
		{"trailing junk", "  Charizard!  ", "charizard"},
		{"cedilla", "Coleção Especial", "colecao-especial"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}
