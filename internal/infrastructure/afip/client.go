package afip

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	pkgafip "github.com/jhoicas/Facturacion-api/pkg/afip"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
)

// Config configuración del cliente AFIP.
type Config struct {
	CUIT        string // CUIT del emisor
	SalesPoint  int    // punto de venta habilitado
	Environment string // entity.EnvironmentProd o entity.EnvironmentDev
}

// Client sesión hacia los web services de AFIP. Se construye una sola vez en
// el arranque y se inyecta por referencia a los workflows; el ticket de acceso
// se inicializa de forma perezosa en la primera llamada que lo requiere.
// Solo el ambiente de producción exige ticket; en DEV se invoca sin token.
type Client struct {
	cfg   Config
	creds CredentialProvider
	svc   VoucherService
	login LoginService
	log   *logger.Logger

	mu     sync.Mutex
	ticket *AccessTicket
}

// NewClient construye el cliente con sus puertos.
func NewClient(cfg Config, creds CredentialProvider, svc VoucherService, login LoginService, log *logger.Logger) *Client {
	return &Client{cfg: cfg, creds: creds, svc: svc, login: login, log: log}
}

// SalesPoint devuelve el punto de venta configurado.
func (c *Client) SalesPoint() int {
	return c.cfg.SalesPoint
}

// Reset descarta el ticket de acceso en memoria. La próxima llamada vuelve a
// autenticarse. Pensado para aislamiento en tests y para re-login forzado.
func (c *Client) Reset() {
	c.mu.Lock()
	c.ticket = nil
	c.mu.Unlock()
}

// ServerStatus consulta las tres capas del servicio (aplicación, datos y
// autenticación). El servicio está sano solo si las tres reportan OK.
func (c *Client) ServerStatus(ctx context.Context) (*ServiceStatus, error) {
	status, err := c.svc.Dummy(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("afip: health check fallido")
		return nil, fmt.Errorf("%w: health check: %v", domain.ErrAuthorityUnavailable, err)
	}
	return status, nil
}

// LastVoucherNumber devuelve el último número de comprobante autorizado para
// el punto de venta y tipo externo dados.
func (c *Client) LastVoucherNumber(ctx context.Context, salesPoint, voucherType int) (int64, error) {
	auth, err := c.auth(ctx)
	if err != nil {
		return 0, err
	}
	n, err := c.svc.LastAuthorized(ctx, auth, salesPoint, voucherType)
	if errors.Is(err, ErrExpiredToken) {
		if auth, err = c.relogin(ctx); err == nil {
			n, err = c.svc.LastAuthorized(ctx, auth, salesPoint, voucherType)
		}
	}
	if err != nil {
		c.log.Warn().Err(err).
			Int("sales_point", salesPoint).
			Int("voucher_type", voucherType).
			Msg("afip: consulta de último comprobante fallida")
		return 0, fmt.Errorf("%w: último comprobante: %v", domain.ErrAuthorityUnavailable, err)
	}
	return n, nil
}

// Authorize solicita el CAE de un comprobante. Es una llamada bloqueante
// única: un rechazo de AFIP es terminal y no se reintenta; solo un ticket
// vencido dispara una re-autenticación y un único reintento.
func (c *Client) Authorize(ctx context.Context, req *VoucherRequest) (*VoucherResult, error) {
	auth, err := c.auth(ctx)
	if err != nil {
		return nil, err
	}
	res, err := c.svc.RequestCAE(ctx, auth, req)
	if errors.Is(err, ErrExpiredToken) {
		if auth, err = c.relogin(ctx); err == nil {
			res, err = c.svc.RequestCAE(ctx, auth, req)
		}
	}
	if err != nil {
		c.log.Warn().Err(err).
			Int("sales_point", req.SalesPoint).
			Int("voucher_type", req.VoucherType).
			Msg("afip: solicitud de CAE fallida")
		return nil, fmt.Errorf("%w: solicitud de CAE: %v", domain.ErrAuthorityUnavailable, err)
	}
	if !res.Approved {
		obs := formatObservations(res.Observations)
		c.log.Warn().
			Int("sales_point", req.SalesPoint).
			Int("voucher_type", req.VoucherType).
			Str("observations", obs).
			Msg("afip: comprobante rechazado")
		if hasWrongClassObservation(res.Observations) {
			return res, fmt.Errorf("%w: %s", domain.ErrWrongDocumentClass, obs)
		}
		return res, fmt.Errorf("%w: %s", domain.ErrAuthorityRejected, obs)
	}
	return res, nil
}

// auth devuelve credenciales de invocación vigentes. En DEV no hay ticket;
// en PROD se resuelven certificado y clave, y se inicia sesión si el ticket
// en memoria no existe o venció. Un fallo de credenciales o de login se trata
// como autoridad no disponible, no como error fatal de la emisión.
func (c *Client) auth(ctx context.Context) (Auth, error) {
	if c.cfg.Environment != entity.EnvironmentProd {
		return Auth{CUIT: c.cfg.CUIT}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ticket.Expired() {
		return Auth{Token: c.ticket.Token, Sign: c.ticket.Sign, CUIT: c.cfg.CUIT}, nil
	}

	cert, err := c.creds.Resolve(ctx, entity.CredentialCertificate, c.cfg.Environment)
	if err != nil {
		return Auth{}, fmt.Errorf("%w: certificado: %v", domain.ErrAuthorityUnavailable, err)
	}
	key, err := c.creds.Resolve(ctx, entity.CredentialPrivateKey, c.cfg.Environment)
	if err != nil {
		return Auth{}, fmt.Errorf("%w: clave privada: %v", domain.ErrAuthorityUnavailable, err)
	}

	ticket, err := c.login.Login(ctx, cert, key)
	if err != nil {
		c.log.Warn().Err(err).Msg("afip: login WSAA fallido")
		return Auth{}, fmt.Errorf("%w: login: %v", domain.ErrAuthorityUnavailable, err)
	}
	c.ticket = ticket
	c.log.Info().Time("expires_at", ticket.ExpiresAt).Msg("afip: ticket de acceso renovado")
	return Auth{Token: ticket.Token, Sign: ticket.Sign, CUIT: c.cfg.CUIT}, nil
}

// relogin descarta el ticket y vuelve a autenticarse (reintento único tras
// ErrExpiredToken).
func (c *Client) relogin(ctx context.Context) (Auth, error) {
	c.Reset()
	return c.auth(ctx)
}

func hasWrongClassObservation(obs []Observation) bool {
	for _, o := range obs {
		if pkgafip.WrongClassObservationCodes[o.Code] {
			return true
		}
	}
	return false
}

func formatObservations(obs []Observation) string {
	if len(obs) == 0 {
		return "sin observaciones"
	}
	parts := make([]string, 0, len(obs))
	for _, o := range obs {
		parts = append(parts, fmt.Sprintf("[%d] %s", o.Code, o.Message))
	}
	return strings.Join(parts, "; ")
}
