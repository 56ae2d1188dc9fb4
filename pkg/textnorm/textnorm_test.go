package textnorm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/chatflow/pkg/textnorm"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hola!", "hola"},
		{"¿Qué MENÚ tienen?", "que menu tienen"},
		{"  Mañana,   a las 5pm ", "manana a las 5pm"},
		{"PRICE: $20", "price 20"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, textnorm.Normalize(tt.in))
		})
	}
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"quiero", "una", "pizza"}, textnorm.Tokens("Quiero una PIZZA!!"))
}
