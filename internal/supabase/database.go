package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// DatabaseClient wraps the PostgREST data API.
type DatabaseClient struct {
	client *Client
}

// RPC calls a Postgres function through the data API. The platform runs
// the aggregation; callers only decode the result.
func (d *DatabaseClient) RPC(ctx context.Context, fn string, params any, accessToken string, dest any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	respBody, statusCode, err := d.client.request(ctx, "POST", d.client.restURL+"/rpc/"+url.PathEscape(fn), body, nil, accessToken)
	if err != nil {
		return err
	}
	if statusCode >= 400 {
		return parseError(respBody, statusCode)
	}

	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, dest); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// From starts a query against a table.
func (d *DatabaseClient) From(table string) *Query {
	return &Query{
		client:  d.client,
		table:   table,
		method:  "GET",
		columns: "*",
		headers: make(map[string]string),
	}
}

// Query builds and executes one PostgREST request. Filters accumulate as
// query-string predicates in the order they are added.
type Query struct {
	client      *Client
	table       string
	method      string
	columns     string
	filters     []string
	orders      []string
	limit       *int
	offset      *int
	body        []byte
	headers     map[string]string
	accessToken string
}

// Select sets the columns to return.
func (q *Query) Select(columns string) *Query {
	q.method = "GET"
	q.columns = columns
	return q
}

// Insert sends rows for insertion, returning the representation.
func (q *Query) Insert(data any) *Query {
	q.method = "POST"
	q.body, _ = json.Marshal(data)
	q.headers["Prefer"] = "return=representation"
	return q
}

// Update patches rows matched by the filters.
func (q *Query) Update(data any) *Query {
	q.method = "PATCH"
	q.body, _ = json.Marshal(data)
	q.headers["Prefer"] = "return=representation"
	return q
}

// Delete removes rows matched by the filters.
func (q *Query) Delete() *Query {
	q.method = "DELETE"
	q.headers["Prefer"] = "return=representation"
	return q
}

// Eq adds an equality predicate.
func (q *Query) Eq(column string, value any) *Query {
	q.filters = append(q.filters, fmt.Sprintf("%s=eq.%s", column, escapeValue(value)))
	return q
}

// In adds a set-membership predicate. An empty set adds nothing, so an
// empty filter imposes no restriction.
func (q *Query) In(column string, values []string) *Query {
	if len(values) == 0 {
		return q
	}
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = url.QueryEscape(v)
	}
	q.filters = append(q.filters, fmt.Sprintf("%s=in.(%s)", column, strings.Join(escaped, ",")))
	return q
}

// Gte adds a greater-than-or-equal predicate.
func (q *Query) Gte(column string, value any) *Query {
	q.filters = append(q.filters, fmt.Sprintf("%s=gte.%s", column, escapeValue(value)))
	return q
}

// Lte adds a less-than-or-equal predicate.
func (q *Query) Lte(column string, value any) *Query {
	q.filters = append(q.filters, fmt.Sprintf("%s=lte.%s", column, escapeValue(value)))
	return q
}

// escapeValue query-escapes a predicate value so caller-supplied strings
// cannot introduce extra query parameters.
func escapeValue(value any) string {
	return url.QueryEscape(fmt.Sprintf("%v", value))
}

// Is adds an IS predicate (null, true, false).
func (q *Query) Is(column string, value any) *Query {
	q.filters = append(q.filters, fmt.Sprintf("%s=is.%v", column, value))
	return q
}

// Order appends an ordering clause.
func (q *Query) Order(column string, dir OrderDirection) *Query {
	q.orders = append(q.orders, fmt.Sprintf("%s.%s", column, dir))
	return q
}

// Limit caps the number of returned rows.
func (q *Query) Limit(n int) *Query {
	q.limit = &n
	return q
}

// Offset skips rows for pagination.
func (q *Query) Offset(n int) *Query {
	q.offset = &n
	return q
}

// Single requests a bare object instead of a one-element array.
func (q *Query) Single() *Query {
	q.headers["Accept"] = "application/vnd.pgrst.object+json"
	return q
}

// WithToken attaches the user's access token so row-level security scopes
// the query to that user.
func (q *Query) WithToken(token string) *Query {
	q.accessToken = token
	return q
}

// Execute runs the query and returns the raw response body.
func (q *Query) Execute(ctx context.Context) ([]byte, error) {
	respBody, statusCode, err := q.client.request(ctx, q.method, q.buildURL(), q.body, q.headers, q.accessToken)
	if err != nil {
		return nil, err
	}
	if statusCode >= 400 {
		return nil, parseError(respBody, statusCode)
	}
	return respBody, nil
}

// ExecuteInto runs the query and decodes the response into dest.
func (q *Query) ExecuteInto(ctx context.Context, dest any) error {
	data, err := q.Execute(ctx)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func (q *Query) buildURL() string {
	u := q.client.restURL + "/" + url.PathEscape(q.table)

	params := make([]string, 0, len(q.filters)+4)
	if q.method == "GET" && q.columns != "" {
		params = append(params, "select="+url.QueryEscape(q.columns))
	}
	params = append(params, q.filters...)
	if len(q.orders) > 0 {
		params = append(params, "order="+strings.Join(q.orders, ","))
	}
	if q.limit != nil {
		params = append(params, fmt.Sprintf("limit=%d", *q.limit))
	}
	if q.offset != nil {
		params = append(params, fmt.Sprintf("offset=%d", *q.offset))
	}

	if len(params) > 0 {
		u += "?" + strings.Join(params, "&")
	}
	return u
}
