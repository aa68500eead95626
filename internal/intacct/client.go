// Package intacct implements the XML gateway client: session login,
// reference-data queries and the submission operations used by the entry
// builders.
package intacct

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/pipewise/target-intacct/internal/intacct/payload"
	"github.com/pipewise/target-intacct/internal/version"
)

// DefaultAPIURL is the production gateway endpoint.
const DefaultAPIURL = "https://api.intacct.com/ia/xml/xmlgw.phtml"

const (
	requestContentType = "x-intacct-xml-request"
	dtdVersion         = "3.0"
	queryPageSize      = 1000
)

// Config carries the credentials and endpoint for one gateway connection.
type Config struct {
	APIURL         string
	SenderID       string
	SenderPassword string
	CompanyID      string
	UserID         string
	UserPassword   string
	EntityID       string
	UserAgent      string

	// RateLimitRPS is a global request rate limit. Set to <=0 to disable.
	RateLimitRPS float64
}

// Client is a synchronous client for the gateway. All calls are sequential;
// there is no retry logic at this layer.
type Client struct {
	baseURL   *url.URL
	cfg       Config
	http      *http.Client
	limiter   *rate.Limiter
	logger    *log.Logger
	sessionID string
}

// NewClient validates the config and constructs a client. Call Login before
// any query or submission operation.
func NewClient(cfg Config, logger *log.Logger) (*Client, error) {
	raw := strings.TrimSpace(cfg.APIURL)
	if raw == "" {
		raw = DefaultAPIURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api url must include a host (got %q)", cfg.APIURL)
	}
	for name, v := range map[string]string{
		"sender_id":       cfg.SenderID,
		"sender_password": cfg.SenderPassword,
		"company_id":      cfg.CompanyID,
		"user_id":         cfg.UserID,
		"user_password":   cfg.UserPassword,
	} {
		if strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("%s is required", name)
		}
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), 1)
	}

	return &Client{
		baseURL: u,
		cfg:     cfg,
		http:    &http.Client{Timeout: 60 * time.Second},
		limiter: limiter,
		logger:  logger,
	}, nil
}

// SessionID returns the session obtained by Login, or "".
func (c *Client) SessionID() string {
	return c.sessionID
}

// Login exchanges the configured credentials for a session id used by all
// subsequent calls. The entity id scopes the session to one entity.
func (c *Client) Login(ctx context.Context) error {
	body, err := payload.MarshalElement("getAPISession", payload.New())
	if err != nil {
		return err
	}
	result, err := c.execute(ctx, "getAPISession", body, false)
	if err != nil {
		return err
	}
	session := strings.TrimSpace(result.Data.findText("sessionid"))
	if session == "" {
		return &APIError{Op: "getAPISession", Message: "response missing sessionid"}
	}
	c.sessionID = session
	c.logger.Debug("gateway session established", "company_id", c.cfg.CompanyID, "entity_id", c.cfg.EntityID)
	return nil
}

// GetEntity fetches every instance of the object type, returning only the
// requested fields. Paging is handled internally; the full list is returned.
func (c *Client) GetEntity(ctx context.Context, objectType string, fields []string) ([]map[string]string, error) {
	code, err := ObjectCode(objectType)
	if err != nil {
		return nil, err
	}

	query := payload.New().
		Set("object", code).
		Set("fields", strings.Join(fields, ",")).
		Set("query", "").
		Set("pagesize", queryPageSize)
	body, err := payload.MarshalElement("readByQuery", query)
	if err != nil {
		return nil, err
	}

	result, err := c.execute(ctx, "readByQuery", body, true)
	if err != nil {
		return nil, err
	}
	rows := result.Data.rows()

	for result.Data.NumRemaining > 0 && strings.TrimSpace(result.Data.ResultID) != "" {
		more := payload.New().Set("resultId", result.Data.ResultID)
		body, err = payload.MarshalElement("readMore", more)
		if err != nil {
			return nil, err
		}
		result, err = c.execute(ctx, "readMore", body, true)
		if err != nil {
			return nil, err
		}
		rows = append(rows, result.Data.rows()...)
	}

	c.logger.Debug("fetched entity list", "object_type", objectType, "count", len(rows))
	return rows, nil
}

// PostJournal submits one journal entry (payroll or statistical).
func (c *Client) PostJournal(ctx context.Context, entry *payload.Object) error {
	return c.post(ctx, "create_gltransaction", entry)
}

// PostEmployeeRate submits one employee pay rate record.
func (c *Client) PostEmployeeRate(ctx context.Context, entry *payload.Object) error {
	return c.post(ctx, "create_employeepayrate", entry)
}

// PostOtherReceipt submits one other-receipt record.
func (c *Client) PostOtherReceipt(ctx context.Context, receipt *payload.Object) error {
	return c.post(ctx, "record_otherreceipt", receipt)
}

// PostManualPayment submits one manual payment record.
func (c *Client) PostManualPayment(ctx context.Context, pay *payload.Object) error {
	return c.post(ctx, "create_paymentrequest", pay)
}

func (c *Client) post(ctx context.Context, function string, body *payload.Object) error {
	b, err := payload.MarshalElement(function, body)
	if err != nil {
		return err
	}
	_, err = c.execute(ctx, function, b, true)
	return err
}

// execute sends one function through the gateway and returns its result.
func (c *Client) execute(ctx context.Context, op string, functionXML []byte, useSession bool) (*functionResult, error) {
	if useSession && strings.TrimSpace(c.sessionID) == "" {
		return nil, fmt.Errorf("%s requires a session: call Login first", op)
	}

	env := requestEnvelope{
		Control: requestControl{
			SenderID:   c.cfg.SenderID,
			Password:   c.cfg.SenderPassword,
			ControlID:  uuid.NewString(),
			UniqueID:   "false",
			DTDVersion: dtdVersion,
		},
		Operation: requestOperation{
			Content: requestContent{
				Function: requestFunction{
					ControlID: uuid.NewString(),
					Inner:     functionXML,
				},
			},
		},
	}
	if useSession {
		env.Operation.Authentication.SessionID = c.sessionID
	} else {
		env.Operation.Authentication.Login = &loginAuth{
			UserID:     c.cfg.UserID,
			CompanyID:  c.cfg.CompanyID,
			Password:   c.cfg.UserPassword,
			LocationID: c.cfg.EntityID,
		}
	}

	reqBody, err := xml.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", op, err)
	}
	reqBody = append([]byte(xml.Header), reqBody...)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.String(), bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", requestContentType)
	ua := strings.TrimSpace(c.cfg.UserAgent)
	if ua == "" {
		ua = version.UserAgent
	}
	req.Header.Set("User-Agent", ua)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Snippet: snippet(respBody)}
	}

	var out gatewayResponse
	if err := xml.Unmarshal(respBody, &out); err != nil {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Message: "unparseable response", Snippet: snippet(respBody)}
	}
	return out.result(op, resp.StatusCode, respBody)
}

type requestEnvelope struct {
	XMLName   xml.Name         `xml:"request"`
	Control   requestControl   `xml:"control"`
	Operation requestOperation `xml:"operation"`
}

type requestControl struct {
	SenderID   string `xml:"senderid"`
	Password   string `xml:"password"`
	ControlID  string `xml:"controlid"`
	UniqueID   string `xml:"uniqueid"`
	DTDVersion string `xml:"dtdversion"`
}

type requestOperation struct {
	Authentication requestAuth    `xml:"authentication"`
	Content        requestContent `xml:"content"`
}

type requestAuth struct {
	SessionID string     `xml:"sessionid,omitempty"`
	Login     *loginAuth `xml:"login,omitempty"`
}

type loginAuth struct {
	UserID     string `xml:"userid"`
	CompanyID  string `xml:"companyid"`
	Password   string `xml:"password"`
	LocationID string `xml:"locationid,omitempty"`
}

type requestContent struct {
	Function requestFunction `xml:"function"`
}

type requestFunction struct {
	ControlID string `xml:"controlid,attr"`
	Inner     []byte `xml:",innerxml"`
}

type gatewayResponse struct {
	XMLName   xml.Name      `xml:"response"`
	Control   statusSection `xml:"control"`
	ErrMsg    *errorMessage `xml:"errormessage"`
	Operation struct {
		Authentication statusSection    `xml:"authentication"`
		Results        []functionResult `xml:"result"`
	} `xml:"operation"`
}

type statusSection struct {
	Status string `xml:"status"`
}

type functionResult struct {
	Status    string        `xml:"status"`
	Function  string        `xml:"function"`
	ControlID string        `xml:"controlid"`
	Data      resultData    `xml:"data"`
	ErrMsg    *errorMessage `xml:"errormessage"`
}

type resultData struct {
	ListType     string           `xml:"listtype,attr"`
	Count        int              `xml:"count,attr"`
	NumRemaining int              `xml:"numremaining,attr"`
	ResultID     string           `xml:"resultId,attr"`
	Elements     []genericElement `xml:",any"`
}

type genericElement struct {
	XMLName  xml.Name
	Text     string           `xml:",chardata"`
	Children []genericElement `xml:",any"`
}

type errorMessage struct {
	Errors []gatewayError `xml:"error"`
}

type gatewayError struct {
	ErrorNo      string `xml:"errorno"`
	Description  string `xml:"description"`
	Description2 string `xml:"description2"`
	Correction   string `xml:"correction"`
}

func (r *gatewayResponse) result(op string, statusCode int, body []byte) (*functionResult, error) {
	if !strings.EqualFold(strings.TrimSpace(r.Control.Status), "success") {
		return nil, apiErrorFrom(op, statusCode, r.ErrMsg, body)
	}
	if auth := strings.TrimSpace(r.Operation.Authentication.Status); auth != "" && !strings.EqualFold(auth, "success") {
		return nil, apiErrorFrom(op, statusCode, r.ErrMsg, body)
	}
	if len(r.Operation.Results) == 0 {
		return nil, &APIError{Op: op, StatusCode: statusCode, Message: "response missing result", Snippet: snippet(body)}
	}
	res := &r.Operation.Results[0]
	if !strings.EqualFold(strings.TrimSpace(res.Status), "success") {
		return nil, apiErrorFrom(op, statusCode, res.ErrMsg, body)
	}
	return res, nil
}

func apiErrorFrom(op string, statusCode int, msg *errorMessage, body []byte) error {
	out := &APIError{Op: op, StatusCode: statusCode}
	if msg != nil && len(msg.Errors) > 0 {
		first := msg.Errors[0]
		out.ErrorNo = strings.TrimSpace(first.ErrorNo)
		out.Message = strings.TrimSpace(first.Description2)
		if out.Message == "" {
			out.Message = strings.TrimSpace(first.Description)
		}
		out.Correction = strings.TrimSpace(first.Correction)
		return out
	}
	out.Snippet = snippet(body)
	return out
}

// rows converts the data element children (one element per entity instance)
// into field-name -> value maps.
func (d resultData) rows() []map[string]string {
	out := make([]map[string]string, 0, len(d.Elements))
	for _, el := range d.Elements {
		row := make(map[string]string, len(el.Children))
		for _, child := range el.Children {
			row[child.XMLName.Local] = strings.TrimSpace(child.Text)
		}
		out = append(out, row)
	}
	return out
}

// findText searches the data tree for the first element with the given name.
func (d resultData) findText(name string) string {
	var walk func(els []genericElement) string
	walk = func(els []genericElement) string {
		for _, el := range els {
			if el.XMLName.Local == name {
				return strings.TrimSpace(el.Text)
			}
			if v := walk(el.Children); v != "" {
				return v
			}
		}
		return ""
	}
	return walk(d.Elements)
}
