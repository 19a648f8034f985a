package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Setting carries response shaping options and hook names.
type Setting struct {
	Pagination bool           `json:"pagination,omitempty" yaml:"pagination,omitempty"`
	One        bool           `json:"one,omitempty" yaml:"one,omitempty"`
	Page       int            `json:"page,omitempty" yaml:"page,omitempty"`
	Size       int            `json:"size,omitempty" yaml:"size,omitempty"`
	OrderBy    []string       `json:"order_by,omitempty" yaml:"order_by,omitempty"`
	Before     []string       `json:"before,omitempty" yaml:"before,omitempty"`
	After      []string       `json:"after,omitempty" yaml:"after,omitempty"`
	By         map[string]any `json:"by,omitempty" yaml:"by,omitempty"`
}

// QueryRequest is the read request DSL.
type QueryRequest struct {
	Namespace string         `json:"namespace" yaml:"namespace"`
	Object    string         `json:"object" yaml:"object"`
	Rule      map[string]any `json:"rule" yaml:"rule"`
	Field     []string       `json:"field" yaml:"field"`
	Setting   Setting        `json:"setting" yaml:"setting"`
}

// Validate checks the request envelope. Key level problems are reported
// later, while compiling rules and fields.
func (r QueryRequest) Validate() error {
	if err := validateTarget(r.Namespace, r.Object); err != nil {
		return err
	}
	return r.Setting.validate()
}

func (s Setting) validate() error {
	if s.Pagination && s.One {
		return ParamErrorf("pagination and one cannot be combined")
	}
	if s.Pagination && (s.Page < 0 || s.Size < 0) {
		return ParamErrorf("unsupported pagination page=%d size=%d", s.Page, s.Size)
	}
	return nil
}

func validateTarget(namespace, object string) error {
	if strings.TrimSpace(namespace) == "" {
		return ParamErrorf("missing required param namespace")
	}
	if strings.TrimSpace(object) == "" {
		return ParamErrorf("missing required param object")
	}
	return nil
}

// Records accepts either a single JSON object or a list of objects.
type Records []Row

func (r *Records) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	switch {
	case bytes.HasPrefix(trimmed, []byte("{")):
		var row Row
		if err := dec.Decode(&row); err != nil {
			return err
		}
		*r = Records{row}
		return nil
	case bytes.HasPrefix(trimmed, []byte("[")):
		var rows []Row
		if err := dec.Decode(&rows); err != nil {
			return err
		}
		*r = rows
		return nil
	}
	return ParamErrorf("illegal data type")
}

// CreateRequest inserts one or more rows into Object.
type CreateRequest struct {
	Namespace string  `json:"namespace"`
	Object    string  `json:"object"`
	Data      Records `json:"data"`
	Setting   Setting `json:"setting"`
}

func (r CreateRequest) Validate() error {
	if err := validateTarget(r.Namespace, r.Object); err != nil {
		return err
	}
	if len(r.Data) == 0 {
		return ParamErrorf("missing required param data")
	}
	return nil
}

// UpdateRequest updates the rows of Object matching Setting.By.
type UpdateRequest struct {
	Namespace string  `json:"namespace"`
	Object    string  `json:"object"`
	Data      Row     `json:"data"`
	Setting   Setting `json:"setting"`
}

func (r UpdateRequest) Validate() error {
	if err := validateTarget(r.Namespace, r.Object); err != nil {
		return err
	}
	if len(r.Data) == 0 {
		return ParamErrorf("missing required param data")
	}
	if len(r.Setting.By) == 0 {
		return ParamErrorf("update requires setting.by")
	}
	return nil
}

// MetaRequest describes one table, or lists all tables when Object is empty.
type MetaRequest struct {
	Namespace string `json:"namespace"`
	Object    string `json:"object,omitempty"`
}

// Page is the pagination envelope before field renaming.
type Page struct {
	List       []Row
	TotalCount int64
	TotalPage  int64
	PageNo     int
	PageSize   int
}

// PageNames configures the envelope keys of a paginated response.
type PageNames struct {
	List       string
	TotalCount string
	TotalPage  string
	PageNo     string
	PageSize   string
}

// DefaultPageNames matches the names clients of the service already use.
func DefaultPageNames() PageNames {
	return PageNames{
		List:       "list",
		TotalCount: "total_count",
		TotalPage:  "total_page",
		PageNo:     "page_no",
		PageSize:   "page_size",
	}
}

// Envelope renders p using names.
func (p Page) Envelope(names PageNames) map[string]any {
	list := p.List
	if list == nil {
		list = []Row{}
	}
	return map[string]any{
		names.List:       list,
		names.TotalCount: p.TotalCount,
		names.TotalPage:  p.TotalPage,
		names.PageNo:     p.PageNo,
		names.PageSize:   p.PageSize,
	}
}
