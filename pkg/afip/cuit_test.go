package afip_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/pkg/afip"
)

func TestValidateCUIT_Validos(t *testing.T) {
	cases := []string{
		"20123456786",
		"20-12345678-6",
		"27222222228",
		"27-22222222-8",
	}
	for _, cuit := range cases {
		t.Run(cuit, func(t *testing.T) {
			assert.NoError(t, afip.ValidateCUIT(cuit), "el CUIT %s es válido módulo 11", cuit)
		})
	}
}

func TestValidateCUIT_Invalidos(t *testing.T) {
	cases := []struct {
		name string
		cuit string
	}{
		{"dígito verificador incorrecto", "20123456780"},
		{"muy corto", "2012345678"},
		{"muy largo", "201234567861"},
		{"vacío", ""},
		{"solo letras", "sin-digitos"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, afip.ValidateCUIT(tc.cuit))
		})
	}
}

func TestComputeCUITCheckDigit(t *testing.T) {
	digit, err := afip.ComputeCUITCheckDigit("2012345678")
	require.NoError(t, err)
	assert.Equal(t, byte('6'), digit)

	// También acepta el CUIT completo: solo usa los 10 primeros dígitos
	digit, err = afip.ComputeCUITCheckDigit("27-22222222-8")
	require.NoError(t, err)
	assert.Equal(t, byte('8'), digit)
}

func TestComputeCUITCheckDigit_BaseInsuficiente(t *testing.T) {
	_, err := afip.ComputeCUITCheckDigit("123")
	assert.Error(t, err, "con menos de 10 dígitos no hay dígito verificador calculable")
}

func TestVATRateCode(t *testing.T) {
	cases := []struct {
		rate string
		want int
	}{
		{"21", afip.VATCode21},
		{"10.5", afip.VATCode105},
		{"27", afip.VATCode27},
		{"0", afip.VATCode0},
	}
	for _, tc := range cases {
		t.Run(tc.rate, func(t *testing.T) {
			rate := decimal.RequireFromString(tc.rate)
			assert.Equal(t, tc.want, afip.VATRateCode(rate))
			assert.True(t, afip.ValidVATRate(rate))
		})
	}

	// Alícuota fuera de tabla: código 0 y no reconocida
	unknown := decimal.RequireFromString("19")
	assert.Zero(t, afip.VATRateCode(unknown))
	assert.False(t, afip.ValidVATRate(unknown))
}
