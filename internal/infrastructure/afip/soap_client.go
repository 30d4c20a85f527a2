package afip

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

const (
	wsfeURLProd = "https://servicios1.afip.gov.ar/wsfev1/service.asmx"
	wsfeURLTest = "https://wswhomo.afip.gov.ar/wsfev1/service.asmx"

	soapNS     = "http://schemas.xmlsoap.org/soap/envelope/"
	wsfeNS     = "http://ar.gov.afip.dif.FEV1/"
	wsfeAction = "http://ar.gov.afip.dif.FEV1/"

	caeDueLayout = "20060102"
)

// Códigos de error de validación de token del WSFE: fuerzan re-login.
var expiredTokenCodes = map[int]bool{600: true, 601: true, 602: true}

// SOAPVoucherClient implementa VoucherService contra el WSFEv1 de AFIP.
// Usa net/http de la stdlib; no requiere librerías de terceros.
type SOAPVoucherClient struct {
	httpClient *http.Client
	url        string
}

// NewSOAPVoucherClient construye el cliente SOAP con un timeout de red generoso
// (60 s) ya que el WS de AFIP puede tardar varios segundos en responder.
// environment "PROD" apunta a producción; cualquier otro valor a homologación.
func NewSOAPVoucherClient(environment string) *SOAPVoucherClient {
	url := wsfeURLTest
	if environment == entity.EnvironmentProd {
		url = wsfeURLProd
	}
	return &SOAPVoucherClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		url:        url,
	}
}

// ── Estructuras SOAP de pedido ────────────────────────────────────────────────

type wsfeEnvelope struct {
	XMLName xml.Name `xml:"s:Envelope"`
	XmlnsS  string   `xml:"xmlns:s,attr"`
	XmlnsAr string   `xml:"xmlns:ar,attr"`
	Body    wsfeBody `xml:"s:Body"`
}

type wsfeBody struct {
	Content interface{}
}

func (b wsfeBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "s:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

type soapAuth struct {
	Token string `xml:"ar:Token"`
	Sign  string `xml:"ar:Sign"`
	Cuit  string `xml:"ar:Cuit"`
}

type feDummyBody struct {
	XMLName xml.Name `xml:"ar:FEDummy"`
}

type feCompUltimoAutorizadoBody struct {
	XMLName  xml.Name `xml:"ar:FECompUltimoAutorizado"`
	Auth     soapAuth `xml:"ar:Auth"`
	PtoVta   int      `xml:"ar:PtoVta"`
	CbteTipo int      `xml:"ar:CbteTipo"`
}

type feCAESolicitarBody struct {
	XMLName xml.Name `xml:"ar:FECAESolicitar"`
	Auth    soapAuth `xml:"ar:Auth"`
	Req     feCAEReq `xml:"ar:FeCAEReq"`
}

type feCAEReq struct {
	Cab feCabReq `xml:"ar:FeCabReq"`
	Det feDetReq `xml:"ar:FeDetReq"`
}

type feCabReq struct {
	CantReg  int `xml:"ar:CantReg"`
	PtoVta   int `xml:"ar:PtoVta"`
	CbteTipo int `xml:"ar:CbteTipo"`
}

type feDetReq struct {
	Detail feCAEDetRequest `xml:"ar:FECAEDetRequest"`
}

type feCAEDetRequest struct {
	Concepto   int           `xml:"ar:Concepto"`
	DocTipo    int           `xml:"ar:DocTipo"`
	DocNro     int64         `xml:"ar:DocNro"`
	CbteDesde  int64         `xml:"ar:CbteDesde"`
	CbteHasta  int64         `xml:"ar:CbteHasta"`
	CbteFch    string        `xml:"ar:CbteFch"`
	ImpTotal   string        `xml:"ar:ImpTotal"`
	ImpTotConc string        `xml:"ar:ImpTotConc"`
	ImpNeto    string        `xml:"ar:ImpNeto"`
	ImpOpEx    string        `xml:"ar:ImpOpEx"`
	ImpTrib    string        `xml:"ar:ImpTrib"`
	ImpIVA     string        `xml:"ar:ImpIVA"`
	MonID      string        `xml:"ar:MonId"`
	MonCotiz   string        `xml:"ar:MonCotiz"`
	CbtesAsoc  *cbtesAsoc    `xml:"ar:CbtesAsoc,omitempty"`
	IVA        *alicIvaArray `xml:"ar:Iva,omitempty"`
}

type cbtesAsoc struct {
	Items []cbteAsoc `xml:"ar:CbteAsoc"`
}

type cbteAsoc struct {
	Tipo   int   `xml:"ar:Tipo"`
	PtoVta int   `xml:"ar:PtoVta"`
	Nro    int64 `xml:"ar:Nro"`
}

type alicIvaArray struct {
	Items []alicIva `xml:"ar:AlicIva"`
}

type alicIva struct {
	ID      int    `xml:"ar:Id"`
	BaseImp string `xml:"ar:BaseImp"`
	Importe string `xml:"ar:Importe"`
}

// ── Estructuras SOAP de respuesta ─────────────────────────────────────────────

type wsfeResponseEnvelope struct {
	Body wsfeResponseBody `xml:"Body"`
}

type wsfeResponseBody struct {
	DummyResponse  *feDummyResponse        `xml:"FEDummyResponse"`
	UltimoResponse *feCompUltimoResponse   `xml:"FECompUltimoAutorizadoResponse"`
	CAEResponse    *feCAESolicitarResponse `xml:"FECAESolicitarResponse"`
	Fault          *wsfeFault              `xml:"Fault"`
}

type wsfeFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

type feDummyResponse struct {
	Result struct {
		AppServer  string `xml:"AppServer"`
		DbServer   string `xml:"DbServer"`
		AuthServer string `xml:"AuthServer"`
	} `xml:"FEDummyResult"`
}

type wsfeError struct {
	Code int    `xml:"Code"`
	Msg  string `xml:"Msg"`
}

type feCompUltimoResponse struct {
	Result struct {
		PtoVta   int         `xml:"PtoVta"`
		CbteTipo int         `xml:"CbteTipo"`
		CbteNro  int64       `xml:"CbteNro"`
		Errors   []wsfeError `xml:"Errors>Err"`
	} `xml:"FECompUltimoAutorizadoResult"`
}

type feCAESolicitarResponse struct {
	Result struct {
		FeCabResp struct {
			Resultado string `xml:"Resultado"` // A, R o P
		} `xml:"FeCabResp"`
		FeDetResp struct {
			Detail struct {
				Resultado     string `xml:"Resultado"`
				CAE           string `xml:"CAE"`
				CAEFchVto     string `xml:"CAEFchVto"` // YYYYMMDD
				CbteDesde     int64  `xml:"CbteDesde"`
				Observaciones []struct {
					Code int    `xml:"Code"`
					Msg  string `xml:"Msg"`
				} `xml:"Observaciones>Obs"`
			} `xml:"FECAEDetResponse"`
		} `xml:"FeDetResp"`
		Errors []wsfeError `xml:"Errors>Err"`
	} `xml:"FECAESolicitarResult"`
}

// ── Operaciones ───────────────────────────────────────────────────────────────

// Dummy consulta el estado de las tres capas del servicio.
func (c *SOAPVoucherClient) Dummy(ctx context.Context) (*ServiceStatus, error) {
	resp, err := c.call(ctx, "FEDummy", feDummyBody{})
	if err != nil {
		return nil, err
	}
	if resp.DummyResponse == nil {
		return nil, fmt.Errorf("wsfe: respuesta FEDummy vacía")
	}
	return &ServiceStatus{
		AppServer:  resp.DummyResponse.Result.AppServer,
		DbServer:   resp.DummyResponse.Result.DbServer,
		AuthServer: resp.DummyResponse.Result.AuthServer,
	}, nil
}

// LastAuthorized devuelve el último número autorizado para el punto de venta y tipo.
func (c *SOAPVoucherClient) LastAuthorized(ctx context.Context, auth Auth, salesPoint, voucherType int) (int64, error) {
	body := feCompUltimoAutorizadoBody{
		Auth:     soapAuth{Token: auth.Token, Sign: auth.Sign, Cuit: auth.CUIT},
		PtoVta:   salesPoint,
		CbteTipo: voucherType,
	}
	resp, err := c.call(ctx, "FECompUltimoAutorizado", body)
	if err != nil {
		return 0, err
	}
	if resp.UltimoResponse == nil {
		return 0, fmt.Errorf("wsfe: respuesta FECompUltimoAutorizado vacía")
	}
	if err := checkErrors(resp.UltimoResponse.Result.Errors); err != nil {
		return 0, err
	}
	return resp.UltimoResponse.Result.CbteNro, nil
}

// RequestCAE solicita la autorización de un comprobante.
func (c *SOAPVoucherClient) RequestCAE(ctx context.Context, auth Auth, req *VoucherRequest) (*VoucherResult, error) {
	detail := feCAEDetRequest{
		Concepto:   req.Concept,
		DocTipo:    req.DocKind,
		DocNro:     req.DocNumber,
		CbteDesde:  req.VoucherFrom,
		CbteHasta:  req.VoucherTo,
		CbteFch:    req.IssueDate,
		ImpTotal:   money(req.GrandTotal),
		ImpTotConc: "0",
		ImpNeto:    money(req.NetTotal),
		ImpOpEx:    "0",
		ImpTrib:    "0",
		ImpIVA:     money(req.TaxTotal),
		MonID:      "PES",
		MonCotiz:   "1",
	}
	if len(req.Associated) > 0 {
		assoc := &cbtesAsoc{}
		for _, a := range req.Associated {
			assoc.Items = append(assoc.Items, cbteAsoc{Tipo: a.VoucherType, PtoVta: a.SalesPoint, Nro: a.Number})
		}
		detail.CbtesAsoc = assoc
	}
	if len(req.VAT) > 0 {
		iva := &alicIvaArray{}
		for _, v := range req.VAT {
			iva.Items = append(iva.Items, alicIva{ID: v.Code, BaseImp: money(v.Base), Importe: money(v.Amount)})
		}
		detail.IVA = iva
	}

	body := feCAESolicitarBody{
		Auth: soapAuth{Token: auth.Token, Sign: auth.Sign, Cuit: auth.CUIT},
		Req: feCAEReq{
			Cab: feCabReq{CantReg: 1, PtoVta: req.SalesPoint, CbteTipo: req.VoucherType},
			Det: feDetReq{Detail: detail},
		},
	}
	resp, err := c.call(ctx, "FECAESolicitar", body)
	if err != nil {
		return nil, err
	}
	if resp.CAEResponse == nil {
		return nil, fmt.Errorf("wsfe: respuesta FECAESolicitar vacía")
	}
	result := &resp.CAEResponse.Result
	if err := checkErrors(result.Errors); err != nil {
		return nil, err
	}

	det := result.FeDetResp.Detail
	out := &VoucherResult{
		Approved:      result.FeCabResp.Resultado == "A",
		CAE:           det.CAE,
		VoucherNumber: det.CbteDesde,
	}
	if det.CAEFchVto != "" {
		due, perr := time.Parse(caeDueLayout, det.CAEFchVto)
		if perr != nil {
			return nil, fmt.Errorf("wsfe: vencimiento de CAE inválido %q: %w", det.CAEFchVto, perr)
		}
		out.CAEDue = due
	}
	for _, obs := range det.Observaciones {
		out.Observations = append(out.Observations, Observation{Code: obs.Code, Message: obs.Msg})
	}
	return out, nil
}

// call serializa el envelope, ejecuta el POST SOAP y desempaqueta la respuesta.
func (c *SOAPVoucherClient) call(ctx context.Context, operation string, content interface{}) (*wsfeResponseBody, error) {
	envelope := wsfeEnvelope{
		XmlnsS:  soapNS,
		XmlnsAr: wsfeNS,
		Body:    wsfeBody{Content: content},
	}
	xmlPayload, err := xml.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("wsfe: serializar envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url,
		bytes.NewReader(append([]byte(xml.Header), xmlPayload...)))
	if err != nil {
		return nil, fmt.Errorf("wsfe: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", wsfeAction+operation)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("wsfe: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("wsfe: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // max 1 MB
	if err != nil {
		return nil, fmt.Errorf("wsfe: leer respuesta: %w", err)
	}

	var envResp wsfeResponseEnvelope
	if err := xml.Unmarshal(rawBody, &envResp); err != nil {
		return nil, fmt.Errorf("wsfe: parsear respuesta SOAP: %w", err)
	}
	if envResp.Body.Fault != nil {
		return nil, fmt.Errorf("wsfe: SOAP Fault [%s]: %s",
			envResp.Body.Fault.FaultCode, envResp.Body.Fault.FaultString)
	}
	return &envResp.Body, nil
}

// checkErrors traduce el array de errores del WSFE. Los códigos de validación
// de token se mapean a ErrExpiredToken para disparar el re-login del cliente.
func checkErrors(errs []wsfeError) error {
	if len(errs) == 0 {
		return nil
	}
	var msgs []string
	for _, e := range errs {
		if expiredTokenCodes[e.Code] {
			return fmt.Errorf("%w: [%d] %s", ErrExpiredToken, e.Code, e.Msg)
		}
		msgs = append(msgs, fmt.Sprintf("[%d] %s", e.Code, e.Msg))
	}
	return fmt.Errorf("wsfe: %s", strings.Join(msgs, "; "))
}

// money formatea un importe con dos decimales, como espera el WSFE.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
