// Package mockgateway implements a minimal fake of the Intacct XML gateway
// for client and integration tests.
package mockgateway

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// Submission records one create/record function received by the mock.
type Submission struct {
	Function string
	XML      string
}

// Server implements enough of the gateway surface for the client: session
// login, paged readByQuery/readMore, and the submission functions.
type Server struct {
	mu sync.Mutex

	// entities maps object code (EMPLOYEE, CLASS, ...) to instance rows.
	entities map[string][]map[string]string

	// pageSize caps rows returned per readByQuery/readMore response.
	pageSize int

	sessionID   string
	logins      int
	submissions []Submission

	// pending holds rows still to be served for an open result id.
	pending map[string][]map[string]string
	nextRes int

	expectedSender string
	failFunction   string
}

// New constructs a mock with the given per-page row cap (0 means everything
// in one page).
func New(pageSize int) *Server {
	return &Server{
		entities:  make(map[string][]map[string]string),
		pending:   make(map[string][]map[string]string),
		pageSize:  pageSize,
		sessionID: "mock-session-1",
		nextRes:   1,
	}
}

// SetEntities replaces the instance rows for an object code.
func (s *Server) SetEntities(objectCode string, rows []map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[objectCode] = rows
}

// RequireSender enforces that requests carry the sender id.
func (s *Server) RequireSender(senderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expectedSender = strings.TrimSpace(senderID)
}

// FailFunction makes the named function return a failure result.
func (s *Server) FailFunction(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failFunction = strings.TrimSpace(name)
}

// Submissions returns the recorded create/record calls in arrival order.
func (s *Server) Submissions() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Submission, len(s.submissions))
	copy(out, s.submissions)
	return out
}

// Logins returns how many getAPISession calls were served.
func (s *Server) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

// Handler returns an http.Handler serving the mock gateway.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serve)
}

type incomingRequest struct {
	XMLName xml.Name `xml:"request"`
	Control struct {
		SenderID string `xml:"senderid"`
	} `xml:"control"`
	Operation struct {
		Authentication struct {
			SessionID string `xml:"sessionid"`
			Login     *struct {
				UserID    string `xml:"userid"`
				CompanyID string `xml:"companyid"`
			} `xml:"login"`
		} `xml:"authentication"`
		Content struct {
			Function struct {
				Inner string `xml:",innerxml"`
			} `xml:"function"`
		} `xml:"content"`
	} `xml:"operation"`
}

type functionElement struct {
	XMLName  xml.Name
	Object   string `xml:"object"`
	Fields   string `xml:"fields"`
	PageSize int    `xml:"pagesize"`
	ResultID string `xml:"resultId"`
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req incomingRequest
	if err := xml.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request envelope", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expectedSender != "" && req.Control.SenderID != s.expectedSender {
		writeResponse(w, failureControl("XL03000006", "Incorrect Intacct XML Partner ID or password."))
		return
	}

	inner := strings.TrimSpace(req.Operation.Content.Function.Inner)
	var fn functionElement
	if err := xml.Unmarshal([]byte(inner), &fn); err != nil {
		http.Error(w, "bad function element", http.StatusBadRequest)
		return
	}
	name := fn.XMLName.Local

	if s.failFunction != "" && s.failFunction == name {
		writeResponse(w, failureResult("BL01001973", fmt.Sprintf("mock failure for %s", name)))
		return
	}

	switch name {
	case "getAPISession":
		if req.Operation.Authentication.Login == nil {
			writeResponse(w, failureResult("XL03000003", "getAPISession requires login authentication"))
			return
		}
		s.logins++
		writeResponse(w, successResult(fmt.Sprintf("<data><api><sessionid>%s</sessionid></api></data>", s.sessionID)))
	case "readByQuery":
		if req.Operation.Authentication.SessionID != s.sessionID {
			writeResponse(w, failureResult("XL03000006", "invalid session"))
			return
		}
		rows := s.entities[fn.Object]
		s.writePage(w, strings.ToLower(fn.Object), rows)
	case "readMore":
		rows, ok := s.pending[fn.ResultID]
		if !ok {
			writeResponse(w, failureResult("DL02000002", "unknown result id"))
			return
		}
		delete(s.pending, fn.ResultID)
		s.writePage(w, "more", rows)
	case "create_gltransaction", "create_employeepayrate", "record_otherreceipt", "create_paymentrequest":
		if req.Operation.Authentication.SessionID != s.sessionID {
			writeResponse(w, failureResult("XL03000006", "invalid session"))
			return
		}
		s.submissions = append(s.submissions, Submission{Function: name, XML: inner})
		writeResponse(w, successResult("<data></data>"))
	default:
		writeResponse(w, failureResult("XL03000005", fmt.Sprintf("unsupported function %s", name)))
	}
}

func (s *Server) writePage(w http.ResponseWriter, listType string, rows []map[string]string) {
	page := rows
	var remaining []map[string]string
	if s.pageSize > 0 && len(rows) > s.pageSize {
		page = rows[:s.pageSize]
		remaining = rows[s.pageSize:]
	}

	var sb strings.Builder
	resultID := ""
	if len(remaining) > 0 {
		resultID = fmt.Sprintf("res-%d", s.nextRes)
		s.nextRes++
		s.pending[resultID] = remaining
	}
	sb.WriteString(fmt.Sprintf(
		`<data listtype="%s" count="%d" numremaining="%d" resultId="%s">`,
		listType, len(page), len(remaining), resultID,
	))
	for _, row := range page {
		sb.WriteString("<" + listType + ">")
		for name, value := range row {
			sb.WriteString("<" + name + ">")
			_ = xml.EscapeText(&sb, []byte(value))
			sb.WriteString("</" + name + ">")
		}
		sb.WriteString("</" + listType + ">")
	}
	sb.WriteString("</data>")
	writeResponse(w, successResult(sb.String()))
}

func successResult(dataXML string) string {
	return `<response><control><status>success</status></control><operation>` +
		`<authentication><status>success</status></authentication>` +
		`<result><status>success</status><controlid>mock</controlid>` + dataXML + `</result>` +
		`</operation></response>`
}

func failureResult(errorNo, description string) string {
	return `<response><control><status>success</status></control><operation>` +
		`<authentication><status>success</status></authentication>` +
		`<result><status>failure</status><controlid>mock</controlid>` +
		`<errormessage><error><errorno>` + errorNo + `</errorno><description2>` + description + `</description2></error></errormessage>` +
		`</result></operation></response>`
}

func failureControl(errorNo, description string) string {
	return `<response><control><status>failure</status></control>` +
		`<errormessage><error><errorno>` + errorNo + `</errorno><description2>` + description + `</description2></error></errormessage>` +
		`</response>`
}

func writeResponse(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write([]byte(xml.Header + body))
}
