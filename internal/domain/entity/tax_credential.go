package entity

import "time"

// Tipos de credencial fiscal.
const (
	CredentialCertificate = "CERTIFICATE"
	CredentialPrivateKey  = "PRIVATE_KEY"
)

// Ambientes de despliegue reconocidos para credenciales y sesión AFIP.
const (
	EnvironmentProd = "PROD"
	EnvironmentDev  = "DEV"
)

// TaxCredential certificado o clave privada para firmar el ticket de acceso AFIP.
// Environment vacío = credencial válida para cualquier ambiente (fallback).
// De solo lectura para el motor; la gestión es de un colaborador externo.
type TaxCredential struct {
	ID          string
	Type        string
	Environment string
	Content     string
	IsActive    bool
	CreatedAt   time.Time
}
