package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pagekeep/pagekeep/internal/client/models"
)

const defaultTimeout = 30 * time.Second

// Client talks to the remote service's GraphQL endpoint. The query
// shapes are the service's externally defined contract; nothing here
// owns the wire format.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

// NewClient returns a Client for the given endpoint (scheme://host) and
// API token.
func NewClient(endpoint, token string) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		http:     &http.Client{Timeout: defaultTimeout},
	}
}

// SetToken replaces the API token used for subsequent calls.
func (c *Client) SetToken(token string) { c.token = token }

// checkToken fails fast with ErrUnauthorized when the stored token is
// absent or carries an exp claim in the past. The signature is not
// verified; that is the server's job.
func (c *Client) checkToken() error {
	if c.token == "" {
		return ErrUnauthorized
	}
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(c.token, claims); err != nil {
		// Opaque (non-JWT) API keys are accepted as-is.
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if exp.Before(time.Now()) {
		return ErrUnauthorized
	}
	return nil
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// do posts one GraphQL operation and decodes data into out.
func (c *Client) do(ctx context.Context, query string, vars map[string]any, out any) error {
	if err := c.checkToken(); err != nil {
		return err
	}

	body, err := json.Marshal(gqlRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/graphql", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var gr gqlResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return fmt.Errorf("%w: malformed response", ErrUnavailable)
	}
	if len(gr.Errors) > 0 {
		code := gr.Errors[0].Extensions.Code
		if code == "" {
			code = gr.Errors[0].Message
		}
		return &ValidationError{Code: code}
	}

	if out != nil {
		if err := json.Unmarshal(gr.Data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// errorCodes checks a mutation payload's errorCodes list, the API's way
// of rejecting a request inside a 200 response.
func errorCodes(codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	if codes[0] == "NOT_FOUND" || codes[0] == "UNAUTHORIZED" {
		if codes[0] == "NOT_FOUND" {
			return ErrNotFound
		}
		return ErrUnauthorized
	}
	return &ValidationError{Code: codes[0]}
}

// ---- wire shapes ----

type wireItem struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Slug          string   `json:"slug"`
	Description   string   `json:"description"`
	Author        string   `json:"author"`
	ContentReader string   `json:"contentReader"`
	State         string   `json:"state"`
	IsArchived    bool     `json:"isArchived"`
	ReadingProgress float64 `json:"readingProgressPercent"`
	SavedAt       time.Time `json:"savedAt"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Labels        []wireLabel `json:"labels"`
}

type wireLabel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

type wireHighlight struct {
	ID                  string    `json:"id"`
	ShortID             string    `json:"shortId"`
	Quote               string    `json:"quote"`
	Patch               string    `json:"patch"`
	Annotation          string    `json:"annotation"`
	Prefix              string    `json:"prefix"`
	Suffix              string    `json:"suffix"`
	PositionPercent     float64   `json:"highlightPositionPercent"`
	PositionAnchorIndex int64     `json:"highlightPositionAnchorIndex"`
	CreatedByMe         bool      `json:"createdByMe"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

func (w wireItem) toModel() models.Item {
	it := models.Item{
		ID:              w.ID,
		Title:           w.Title,
		PageURL:         w.URL,
		Slug:            w.Slug,
		Description:     w.Description,
		Author:          w.Author,
		ContentReader:   w.ContentReader,
		State:           w.State,
		IsArchived:      w.IsArchived,
		ReadingProgress: w.ReadingProgress,
		SavedAt:         w.SavedAt,
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
		SyncStatus:      models.StatusInSync,
	}
	if it.ContentReader == "" {
		it.ContentReader = models.ReaderWeb
	}
	for _, l := range w.Labels {
		it.Labels = append(it.Labels, models.Label{
			ID: l.ID, Name: l.Name, Color: l.Color, Description: l.Description,
		})
	}
	return it
}

func (w wireHighlight) toModel(itemID string) models.Highlight {
	return models.Highlight{
		ID:                  w.ID,
		ShortID:             w.ShortID,
		ItemID:              itemID,
		Quote:               w.Quote,
		Patch:               w.Patch,
		Annotation:          w.Annotation,
		Prefix:              w.Prefix,
		Suffix:              w.Suffix,
		PositionPercent:     w.PositionPercent,
		PositionAnchorIndex: w.PositionAnchorIndex,
		CreatedByMe:         w.CreatedByMe,
		CreatedAt:           w.CreatedAt,
		UpdatedAt:           w.UpdatedAt,
		SyncStatus:          models.StatusInSync,
	}
}

// ---- operations ----

func (c *Client) Viewer(ctx context.Context) (string, error) {
	const q = `query Viewer { me { profile { username } } }`
	var out struct {
		Me struct {
			Profile struct {
				Username string `json:"username"`
			} `json:"profile"`
		} `json:"me"`
	}
	if err := c.do(ctx, q, nil, &out); err != nil {
		return "", err
	}
	return out.Me.Profile.Username, nil
}

func (c *Client) ListItems(ctx context.Context, q ListQuery) (*ListResult, error) {
	const query = `query Search($query: String, $after: String, $first: Int) {
		search(query: $query, after: $after, first: $first) {
			edges { node {
				id title url slug description author contentReader state
				isArchived readingProgressPercent savedAt createdAt updatedAt
				labels { id name color description }
			} }
			pageInfo { hasNextPage endCursor }
		}
	}`
	vars := map[string]any{"query": q.Query, "first": q.Limit}
	if q.Cursor != "" {
		vars["after"] = q.Cursor
	}
	var out struct {
		Search struct {
			Edges []struct {
				Node wireItem `json:"node"`
			} `json:"edges"`
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
		} `json:"search"`
	}
	if err := c.do(ctx, query, vars, &out); err != nil {
		return nil, err
	}

	res := &ListResult{
		Cursor:  out.Search.PageInfo.EndCursor,
		HasMore: out.Search.PageInfo.HasNextPage,
	}
	for _, e := range out.Search.Edges {
		res.Items = append(res.Items, e.Node.toModel())
	}
	return res, nil
}

func (c *Client) DeltaItems(ctx context.Context, since time.Time, cursor string) (*DeltaResult, error) {
	const query = `query UpdatesSince($since: Date!, $after: String) {
		updatesSince(since: $since, after: $after) {
			edges {
				itemID updateReason
				node {
					id title url slug description author contentReader state
					isArchived readingProgressPercent savedAt createdAt updatedAt
					labels { id name color description }
				}
			}
			pageInfo { hasNextPage endCursor }
		}
	}`
	vars := map[string]any{"since": since.UTC().Format(time.RFC3339)}
	if cursor != "" {
		vars["after"] = cursor
	}
	var out struct {
		UpdatesSince struct {
			Edges []struct {
				ItemID       string    `json:"itemID"`
				UpdateReason string    `json:"updateReason"`
				Node         *wireItem `json:"node"`
			} `json:"edges"`
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
		} `json:"updatesSince"`
	}
	if err := c.do(ctx, query, vars, &out); err != nil {
		return nil, err
	}

	res := &DeltaResult{
		Cursor:  out.UpdatesSince.PageInfo.EndCursor,
		HasMore: out.UpdatesSince.PageInfo.HasNextPage,
	}
	for _, e := range out.UpdatesSince.Edges {
		if e.UpdateReason == "DELETED" || e.Node == nil {
			res.DeletedIDs = append(res.DeletedIDs, e.ItemID)
			continue
		}
		res.Items = append(res.Items, e.Node.toModel())
	}
	return res, nil
}

func (c *Client) ItemContent(ctx context.Context, itemID, username string) ([]byte, error) {
	const query = `query ArticleContent($username: String!, $slug: String!) {
		article(username: $username, slug: $slug) {
			... on ArticleSuccess { article { content } }
			... on ArticleError { errorCodes }
		}
	}`
	var out struct {
		Article struct {
			Article *struct {
				Content string `json:"content"`
			} `json:"article"`
			ErrorCodes []string `json:"errorCodes"`
		} `json:"article"`
	}
	if err := c.do(ctx, query, map[string]any{"username": username, "slug": itemID}, &out); err != nil {
		return nil, err
	}
	if err := errorCodes(out.Article.ErrorCodes); err != nil {
		return nil, err
	}
	if out.Article.Article == nil {
		return nil, ErrNotFound
	}
	return []byte(out.Article.Article.Content), nil
}

func (c *Client) SaveURL(ctx context.Context, requestID, url string) error {
	const query = `mutation SaveUrl($input: SaveUrlInput!) {
		saveUrl(input: $input) {
			... on SaveSuccess { url }
			... on SaveError { errorCodes }
		}
	}`
	var out struct {
		SaveURL struct {
			ErrorCodes []string `json:"errorCodes"`
		} `json:"saveUrl"`
	}
	vars := map[string]any{"input": map[string]any{"clientRequestId": requestID, "url": url, "source": "api"}}
	if err := c.do(ctx, query, vars, &out); err != nil {
		return err
	}
	return errorCodes(out.SaveURL.ErrorCodes)
}

func (c *Client) ArchiveItem(ctx context.Context, itemID string, archived bool) error {
	const query = `mutation SetLinkArchived($input: ArchiveLinkInput!) {
		setLinkArchived(input: $input) {
			... on ArchiveLinkSuccess { linkId }
			... on ArchiveLinkError { errorCodes }
		}
	}`
	var out struct {
		SetLinkArchived struct {
			ErrorCodes []string `json:"errorCodes"`
		} `json:"setLinkArchived"`
	}
	vars := map[string]any{"input": map[string]any{"linkId": itemID, "archived": archived}}
	if err := c.do(ctx, query, vars, &out); err != nil {
		return err
	}
	return errorCodes(out.SetLinkArchived.ErrorCodes)
}

func (c *Client) DeleteItem(ctx context.Context, itemID string) error {
	const query = `mutation DeleteItem($input: SetBookmarkArticleInput!) {
		setBookmarkArticle(input: $input) {
			... on SetBookmarkArticleSuccess { bookmarkedArticle { id } }
			... on SetBookmarkArticleError { errorCodes }
		}
	}`
	var out struct {
		SetBookmarkArticle struct {
			ErrorCodes []string `json:"errorCodes"`
		} `json:"setBookmarkArticle"`
	}
	vars := map[string]any{"input": map[string]any{"articleID": itemID, "bookmark": false}}
	if err := c.do(ctx, query, vars, &out); err != nil {
		return err
	}
	return errorCodes(out.SetBookmarkArticle.ErrorCodes)
}

func (c *Client) SnoozeItem(ctx context.Context, itemID string, until time.Time) error {
	const query = `mutation CreateReminder($input: CreateReminderInput!) {
		createReminder(input: $input) {
			... on CreateReminderSuccess { reminder { id } }
			... on CreateReminderError { errorCodes }
		}
	}`
	var out struct {
		CreateReminder struct {
			ErrorCodes []string `json:"errorCodes"`
		} `json:"createReminder"`
	}
	vars := map[string]any{"input": map[string]any{
		"linkId":     itemID,
		"remindAt":   until.UTC().Format(time.RFC3339),
		"archiveUntil": true,
		"sendNotification": true,
	}}
	if err := c.do(ctx, query, vars, &out); err != nil {
		return err
	}
	return errorCodes(out.CreateReminder.ErrorCodes)
}

func (c *Client) CreateHighlight(ctx context.Context, in HighlightInput) (*models.Highlight, error) {
	const query = `mutation CreateHighlight($input: CreateHighlightInput!) {
		createHighlight(input: $input) {
			... on CreateHighlightSuccess { highlight {
				id shortId quote patch annotation prefix suffix
				highlightPositionPercent highlightPositionAnchorIndex
				createdByMe createdAt updatedAt
			} }
			... on CreateHighlightError { errorCodes }
		}
	}`
	var out struct {
		CreateHighlight struct {
			Highlight  *wireHighlight `json:"highlight"`
			ErrorCodes []string       `json:"errorCodes"`
		} `json:"createHighlight"`
	}
	vars := map[string]any{"input": map[string]any{
		"id":                           in.ID,
		"shortId":                      in.ShortID,
		"articleId":                    in.ItemID,
		"quote":                        in.Quote,
		"patch":                        in.Patch,
		"annotation":                   in.Annotation,
		"highlightPositionPercent":     in.PositionPercent,
		"highlightPositionAnchorIndex": in.PositionAnchorIndex,
	}}
	if err := c.do(ctx, query, vars, &out); err != nil {
		return nil, err
	}
	if err := errorCodes(out.CreateHighlight.ErrorCodes); err != nil {
		return nil, err
	}
	if out.CreateHighlight.Highlight == nil {
		return nil, &ValidationError{Code: "BAD_DATA"}
	}
	h := out.CreateHighlight.Highlight.toModel(in.ItemID)
	return &h, nil
}

func (c *Client) UpdateHighlight(ctx context.Context, highlightID, annotation string) error {
	const query = `mutation UpdateHighlight($input: UpdateHighlightInput!) {
		updateHighlight(input: $input) {
			... on UpdateHighlightSuccess { highlight { id } }
			... on UpdateHighlightError { errorCodes }
		}
	}`
	var out struct {
		UpdateHighlight struct {
			ErrorCodes []string `json:"errorCodes"`
		} `json:"updateHighlight"`
	}
	vars := map[string]any{"input": map[string]any{"highlightId": highlightID, "annotation": annotation}}
	if err := c.do(ctx, query, vars, &out); err != nil {
		return err
	}
	return errorCodes(out.UpdateHighlight.ErrorCodes)
}

func (c *Client) DeleteHighlight(ctx context.Context, highlightID string) error {
	const query = `mutation DeleteHighlight($highlightId: ID!) {
		deleteHighlight(highlightId: $highlightId) {
			... on DeleteHighlightSuccess { highlight { id } }
			... on DeleteHighlightError { errorCodes }
		}
	}`
	var out struct {
		DeleteHighlight struct {
			ErrorCodes []string `json:"errorCodes"`
		} `json:"deleteHighlight"`
	}
	if err := c.do(ctx, query, map[string]any{"highlightId": highlightID}, &out); err != nil {
		return err
	}
	return errorCodes(out.DeleteHighlight.ErrorCodes)
}

func (c *Client) ListLabels(ctx context.Context) ([]models.Label, error) {
	const query = `query Labels {
		labels {
			... on LabelsSuccess { labels { id name color description } }
			... on LabelsError { errorCodes }
		}
	}`
	var out struct {
		Labels struct {
			Labels     []wireLabel `json:"labels"`
			ErrorCodes []string    `json:"errorCodes"`
		} `json:"labels"`
	}
	if err := c.do(ctx, query, nil, &out); err != nil {
		return nil, err
	}
	if err := errorCodes(out.Labels.ErrorCodes); err != nil {
		return nil, err
	}
	result := make([]models.Label, 0, len(out.Labels.Labels))
	for _, l := range out.Labels.Labels {
		result = append(result, models.Label{
			ID: l.ID, Name: l.Name, Color: l.Color, Description: l.Description,
		})
	}
	return result, nil
}

func (c *Client) CreateLabel(ctx context.Context, label models.Label) (*models.Label, error) {
	const query = `mutation CreateLabel($input: CreateLabelInput!) {
		createLabel(input: $input) {
			... on CreateLabelSuccess { label { id name color description } }
			... on CreateLabelError { errorCodes }
		}
	}`
	var out struct {
		CreateLabel struct {
			Label      *wireLabel `json:"label"`
			ErrorCodes []string   `json:"errorCodes"`
		} `json:"createLabel"`
	}
	vars := map[string]any{"input": map[string]any{
		"name": label.Name, "color": label.Color, "description": label.Description,
	}}
	if err := c.do(ctx, query, vars, &out); err != nil {
		return nil, err
	}
	if err := errorCodes(out.CreateLabel.ErrorCodes); err != nil {
		return nil, err
	}
	if out.CreateLabel.Label == nil {
		return nil, &ValidationError{Code: "BAD_DATA"}
	}
	l := out.CreateLabel.Label
	return &models.Label{ID: l.ID, Name: l.Name, Color: l.Color, Description: l.Description}, nil
}

func (c *Client) DeleteLabel(ctx context.Context, labelID string) error {
	const query = `mutation DeleteLabel($id: ID!) {
		deleteLabel(id: $id) {
			... on DeleteLabelSuccess { label { id } }
			... on DeleteLabelError { errorCodes }
		}
	}`
	var out struct {
		DeleteLabel struct {
			ErrorCodes []string `json:"errorCodes"`
		} `json:"deleteLabel"`
	}
	if err := c.do(ctx, query, map[string]any{"id": labelID}, &out); err != nil {
		return err
	}
	return errorCodes(out.DeleteLabel.ErrorCodes)
}

func (c *Client) SetItemLabels(ctx context.Context, itemID string, labelIDs []string) error {
	return c.setLabels(ctx, map[string]any{"pageId": itemID, "labelIds": labelIDs})
}

func (c *Client) SetHighlightLabels(ctx context.Context, highlightID string, labelIDs []string) error {
	return c.setLabels(ctx, map[string]any{"highlightId": highlightID, "labelIds": labelIDs})
}

func (c *Client) setLabels(ctx context.Context, input map[string]any) error {
	const query = `mutation SetLabels($input: SetLabelsInput!) {
		setLabels(input: $input) {
			... on SetLabelsSuccess { labels { id } }
			... on SetLabelsError { errorCodes }
		}
	}`
	var out struct {
		SetLabels struct {
			ErrorCodes []string `json:"errorCodes"`
		} `json:"setLabels"`
	}
	if err := c.do(ctx, query, map[string]any{"input": input}, &out); err != nil {
		return err
	}
	return errorCodes(out.SetLabels.ErrorCodes)
}
