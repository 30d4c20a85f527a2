package afip

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/base64"
	"encoding/pem"
	"encoding/xml"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

const (
	wsaaURLProd = "https://wsaa.afip.gov.ar/ws/services/LoginCms"
	wsaaURLTest = "https://wsaahomo.afip.gov.ar/ws/services/LoginCms"

	wsaaNS = "http://wsaa.view.sua.dvadac.desein.afip.gov"

	// Servicio al que se pide acceso en el ticket.
	wsaaService = "wsfe"

	// Vigencia solicitada para el ticket de acceso.
	ticketLifetime = 12 * time.Hour
)

// SOAPLoginClient implementa LoginService contra el WSAA de AFIP: arma el
// pedido de ticket (TRA), lo firma como CMS con el certificado del emisor y
// lo entrega por SOAP. El CMS se ensambla a mano con encoding/asn1.
type SOAPLoginClient struct {
	httpClient *http.Client
	url        string
}

// NewSOAPLoginClient construye el cliente WSAA.
// environment "PROD" apunta a producción; cualquier otro valor a homologación.
func NewSOAPLoginClient(environment string) *SOAPLoginClient {
	url := wsaaURLTest
	if environment == entity.EnvironmentProd {
		url = wsaaURLProd
	}
	return &SOAPLoginClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		url:        url,
	}
}

// ── TRA (loginTicketRequest) ──────────────────────────────────────────────────

type loginTicketRequest struct {
	XMLName xml.Name `xml:"loginTicketRequest"`
	Version string   `xml:"version,attr"`
	Header  struct {
		UniqueID       int64  `xml:"uniqueId"`
		GenerationTime string `xml:"generationTime"`
		ExpirationTime string `xml:"expirationTime"`
	} `xml:"header"`
	Service string `xml:"service"`
}

type loginTicketResponse struct {
	Header struct {
		ExpirationTime string `xml:"expirationTime"`
	} `xml:"header"`
	Credentials struct {
		Token string `xml:"token"`
		Sign  string `xml:"sign"`
	} `xml:"credentials"`
}

// ── Estructuras SOAP ──────────────────────────────────────────────────────────

type loginCmsEnvelope struct {
	XMLName  xml.Name     `xml:"s:Envelope"`
	XmlnsS   string       `xml:"xmlns:s,attr"`
	XmlnsWsa string       `xml:"xmlns:wsaa,attr"`
	Body     loginCmsBody `xml:"s:Body"`
}

type loginCmsBody struct {
	LoginCms loginCmsRequest `xml:"wsaa:loginCms"`
}

type loginCmsRequest struct {
	In0 string `xml:"wsaa:in0"` // CMS en Base64
}

type loginCmsResponseEnvelope struct {
	Body struct {
		Response *struct {
			Return string `xml:"loginCmsReturn"`
		} `xml:"loginCmsResponse"`
		Fault *wsfeFault `xml:"Fault"`
	} `xml:"Body"`
}

// ── Login ─────────────────────────────────────────────────────────────────────

// Login arma y firma el TRA, lo entrega al WSAA y devuelve el ticket de acceso.
func (c *SOAPLoginClient) Login(ctx context.Context, certPEM, keyPEM string) (*AccessTicket, error) {
	tra, err := buildTRA(time.Now())
	if err != nil {
		return nil, err
	}
	cms, err := signCMS(tra, certPEM, keyPEM)
	if err != nil {
		return nil, err
	}

	envelope := loginCmsEnvelope{
		XmlnsS:   soapNS,
		XmlnsWsa: wsaaNS,
		Body: loginCmsBody{
			LoginCms: loginCmsRequest{In0: base64.StdEncoding.EncodeToString(cms)},
		},
	}
	xmlPayload, err := xml.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("wsaa: serializar envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url,
		bytes.NewReader(append([]byte(xml.Header), xmlPayload...)))
	if err != nil {
		return nil, fmt.Errorf("wsaa: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("wsaa: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("wsaa: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // max 1 MB
	if err != nil {
		return nil, fmt.Errorf("wsaa: leer respuesta: %w", err)
	}

	var envResp loginCmsResponseEnvelope
	if err := xml.Unmarshal(rawBody, &envResp); err != nil {
		return nil, fmt.Errorf("wsaa: parsear respuesta SOAP: %w", err)
	}
	if envResp.Body.Fault != nil {
		return nil, fmt.Errorf("wsaa: SOAP Fault [%s]: %s",
			envResp.Body.Fault.FaultCode, envResp.Body.Fault.FaultString)
	}
	if envResp.Body.Response == nil {
		return nil, fmt.Errorf("wsaa: respuesta loginCms vacía")
	}

	// loginCmsReturn trae el loginTicketResponse como XML escapado.
	var ticket loginTicketResponse
	if err := xml.Unmarshal([]byte(envResp.Body.Response.Return), &ticket); err != nil {
		return nil, fmt.Errorf("wsaa: parsear loginTicketResponse: %w", err)
	}
	expires, err := time.Parse(time.RFC3339, ticket.Header.ExpirationTime)
	if err != nil {
		return nil, fmt.Errorf("wsaa: vencimiento de ticket inválido %q: %w", ticket.Header.ExpirationTime, err)
	}
	return &AccessTicket{
		Token:     ticket.Credentials.Token,
		Sign:      ticket.Credentials.Sign,
		ExpiresAt: expires,
	}, nil
}

// buildTRA arma el XML del loginTicketRequest.
func buildTRA(now time.Time) ([]byte, error) {
	tra := loginTicketRequest{Version: "1.0", Service: wsaaService}
	tra.Header.UniqueID = now.Unix()
	// Margen hacia atrás para tolerar desfasajes de reloj con el WSAA.
	tra.Header.GenerationTime = now.Add(-10 * time.Minute).Format(time.RFC3339)
	tra.Header.ExpirationTime = now.Add(ticketLifetime).Format(time.RFC3339)

	out, err := xml.MarshalIndent(tra, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("wsaa: serializar TRA: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// ── CMS SignedData (PKCS#7) ───────────────────────────────────────────────────

var (
	oidSignedData    = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 2}
	oidData          = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}
	oidSHA256        = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
	oidRSAEncryption = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}
)

type algorithmIdentifier struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.RawValue `asn1:"optional"`
}

type cmsContentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"explicit,optional,tag:0"`
}

type issuerAndSerial struct {
	IssuerName   asn1.RawValue
	SerialNumber *big.Int
}

type signerInfo struct {
	Version                   int
	IssuerAndSerialNumber     issuerAndSerial
	DigestAlgorithm           algorithmIdentifier
	DigestEncryptionAlgorithm algorithmIdentifier
	EncryptedDigest           []byte
}

type signedData struct {
	Version          int
	DigestAlgorithms []algorithmIdentifier `asn1:"set"`
	ContentInfo      cmsContentInfo
	Certificates     asn1.RawValue `asn1:"optional,tag:0"`
	SignerInfos      []signerInfo  `asn1:"set"`
}

// signCMS firma el contenido como CMS SignedData (sin atributos autenticados,
// con el contenido embebido y el certificado incluido), que es la forma que
// acepta el WSAA.
func signCMS(content []byte, certPEM, keyPEM string) ([]byte, error) {
	cert, key, err := parseCredentials(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}

	digest := sha256.Sum256(content)
	signature, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("wsaa: firmar TRA: %w", err)
	}

	innerContent, err := asn1.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("wsaa: serializar contenido: %w", err)
	}

	sd := signedData{
		Version:          1,
		DigestAlgorithms: []algorithmIdentifier{{Algorithm: oidSHA256, Parameters: asn1.NullRawValue}},
		ContentInfo: cmsContentInfo{
			ContentType: oidData,
			Content: asn1.RawValue{
				Class:      asn1.ClassContextSpecific,
				Tag:        0,
				IsCompound: true,
				Bytes:      innerContent,
			},
		},
		Certificates: asn1.RawValue{
			Class:      asn1.ClassContextSpecific,
			Tag:        0,
			IsCompound: true,
			Bytes:      cert.Raw,
		},
		SignerInfos: []signerInfo{{
			Version: 1,
			IssuerAndSerialNumber: issuerAndSerial{
				IssuerName:   asn1.RawValue{FullBytes: cert.RawIssuer},
				SerialNumber: cert.SerialNumber,
			},
			DigestAlgorithm:           algorithmIdentifier{Algorithm: oidSHA256, Parameters: asn1.NullRawValue},
			DigestEncryptionAlgorithm: algorithmIdentifier{Algorithm: oidRSAEncryption, Parameters: asn1.NullRawValue},
			EncryptedDigest:           signature,
		}},
	}

	inner, err := asn1.Marshal(sd)
	if err != nil {
		return nil, fmt.Errorf("wsaa: serializar SignedData: %w", err)
	}
	// asn1.Marshal no aplica el tag explícito sobre RawValue: el wrapper [0]
	// se arma a mano, igual que en el contenido embebido.
	outer := cmsContentInfo{
		ContentType: oidSignedData,
		Content: asn1.RawValue{
			Class:      asn1.ClassContextSpecific,
			Tag:        0,
			IsCompound: true,
			Bytes:      inner,
		},
	}
	cms, err := asn1.Marshal(outer)
	if err != nil {
		return nil, fmt.Errorf("wsaa: serializar ContentInfo: %w", err)
	}
	return cms, nil
}

// parseCredentials decodifica el certificado y la clave privada RSA en PEM.
func parseCredentials(certPEM, keyPEM string) (*x509.Certificate, *rsa.PrivateKey, error) {
	certBlock, _ := pem.Decode([]byte(certPEM))
	if certBlock == nil {
		return nil, nil, fmt.Errorf("wsaa: certificado PEM inválido")
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("wsaa: parsear certificado: %w", err)
	}

	keyBlock, _ := pem.Decode([]byte(keyPEM))
	if keyBlock == nil {
		return nil, nil, fmt.Errorf("wsaa: clave privada PEM inválida")
	}
	var key *rsa.PrivateKey
	switch keyBlock.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
	default:
		var parsed interface{}
		parsed, err = x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
		if err == nil {
			var ok bool
			key, ok = parsed.(*rsa.PrivateKey)
			if !ok {
				return nil, nil, fmt.Errorf("wsaa: la clave privada no es RSA")
			}
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("wsaa: parsear clave privada: %w", err)
	}
	return cert, key, nil
}
