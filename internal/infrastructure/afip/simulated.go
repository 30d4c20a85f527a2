package afip

import (
	"context"
	"fmt"
	"sync"
	"time"
)

var _ VoucherService = (*SimulatedService)(nil)
var _ LoginService = (*SimulatedService)(nil)

// SimulatedService implementación en memoria de los puertos AFIP para el
// ambiente DEV: responde OK al health check, numera comprobantes en forma
// secuencial por (punto de venta, tipo) y otorga un CAE simulado con 10 días
// de vigencia. No realiza ninguna llamada de red.
type SimulatedService struct {
	mu   sync.Mutex
	last map[string]int64 // (salesPoint|voucherType) -> último número otorgado
}

// NewSimulatedService construye el servicio simulado.
func NewSimulatedService() *SimulatedService {
	return &SimulatedService{last: make(map[string]int64)}
}

// Dummy siempre reporta las tres capas OK.
func (s *SimulatedService) Dummy(ctx context.Context) (*ServiceStatus, error) {
	return &ServiceStatus{AppServer: "OK", DbServer: "OK", AuthServer: "OK"}, nil
}

// LastAuthorized devuelve el último número otorgado en esta sesión simulada.
func (s *SimulatedService) LastAuthorized(ctx context.Context, _ Auth, salesPoint, voucherType int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last[s.key(salesPoint, voucherType)], nil
}

// RequestCAE aprueba el comprobante y avanza la numeración simulada.
func (s *SimulatedService) RequestCAE(ctx context.Context, _ Auth, req *VoucherRequest) (*VoucherResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.key(req.SalesPoint, req.VoucherType)
	s.last[key] = req.VoucherFrom
	return &VoucherResult{
		Approved:      true,
		CAE:           fmt.Sprintf("7%013d", req.VoucherFrom),
		CAEDue:        time.Now().AddDate(0, 0, 10),
		VoucherNumber: req.VoucherFrom,
	}, nil
}

// Login devuelve un ticket ficticio de 12 horas.
func (s *SimulatedService) Login(ctx context.Context, certPEM, keyPEM string) (*AccessTicket, error) {
	return &AccessTicket{
		Token:     "simulated-token",
		Sign:      "simulated-sign",
		ExpiresAt: time.Now().Add(12 * time.Hour),
	}, nil
}

func (s *SimulatedService) key(salesPoint, voucherType int) string {
	return fmt.Sprintf("%d|%d", salesPoint, voucherType)
}
