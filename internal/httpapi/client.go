package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"blockcanvas/internal/domain"
	"blockcanvas/internal/service"
)

// Client is a domain.Gateway backed by a remote Server.
type Client struct {
	base string
	http *http.Client
}

var _ domain.Gateway = (*Client)(nil)

// NewClient returns a client for the server at baseURL. A nil hc uses a
// client with a 30s timeout.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{base: strings.TrimSuffix(baseURL, "/"), http: hc}
}

func (c *Client) CreateBlock(ctx context.Context, pageID int64, r domain.Rect) (*domain.Block, error) {
	var b domain.Block
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/pages/%d/blocks", pageID), r, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBlock returns a block with its attachments and image dimensions.
func (c *Client) GetBlock(ctx context.Context, id int64) (*domain.Block, error) {
	var b domain.Block
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/blocks/%d", id), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) UpdateBlock(ctx context.Context, id int64, p domain.BlockPatch) (*domain.Block, error) {
	var b domain.Block
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/blocks/%d", id), p, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) DeleteBlock(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/blocks/%d", id), nil, nil)
}

func (c *Client) ListBlocksForPage(ctx context.Context, pageID int64) ([]domain.Block, error) {
	var blocks []domain.Block
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/pages/%d/blocks", pageID), nil, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// PageState fetches the page in reading order with its initial extent.
func (c *Client) PageState(ctx context.Context, pageID int64, viewportHeight int) (*domain.PageState, error) {
	path := fmt.Sprintf("/pages/%d/state", pageID)
	if viewportHeight > 0 {
		path += "?viewport=" + strconv.Itoa(viewportHeight)
	}
	var st domain.PageState
	if err := c.do(ctx, http.MethodGet, path, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) ListImageDimensions(ctx context.Context, blockID int64) ([]domain.ImageDimension, error) {
	var dims []domain.ImageDimension
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/blocks/%d/images", blockID), nil, &dims); err != nil {
		return nil, err
	}
	return dims, nil
}

func (c *Client) UpsertImageDimension(ctx context.Context, blockID int64, imageURL string, f domain.ImageDimensionFields) (*domain.ImageDimension, error) {
	var d domain.ImageDimension
	if err := c.do(ctx, http.MethodPut, imagePath(blockID, imageURL), f, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) DeleteImageDimension(ctx context.Context, blockID int64, imageURL string) error {
	return c.do(ctx, http.MethodDelete, imagePath(blockID, imageURL), nil, nil)
}

func (c *Client) CreateAttachment(ctx context.Context, blockID int64, name, url string, t domain.AttachmentType) (*domain.Attachment, error) {
	var a domain.Attachment
	req := attachmentRequest{Name: name, URL: url, Type: t}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/blocks/%d/attachments", blockID), req, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) DeleteAttachment(ctx context.Context, id int64) (*domain.Attachment, error) {
	var a domain.Attachment
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/attachments/%d", id), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// UploadContentImage uploads an image to be inlined into a block's content.
func (c *Client) UploadContentImage(ctx context.Context, blockID int64, name string, data []byte) (*service.ContentImage, error) {
	var img service.ContentImage
	if err := c.upload(ctx, fmt.Sprintf("/blocks/%d/images/upload", blockID), name, data, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

// UploadAttachment uploads a file as an attachment of a block.
func (c *Client) UploadAttachment(ctx context.Context, blockID int64, name string, data []byte) (*domain.Attachment, error) {
	var a domain.Attachment
	if err := c.upload(ctx, fmt.Sprintf("/blocks/%d/attachments/upload", blockID), name, data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func imagePath(blockID int64, imageURL string) string {
	return fmt.Sprintf("/blocks/%d/images?url=%s", blockID, url.QueryEscape(imageURL))
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) upload(ctx context.Context, path, name string, data []byte, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFileIO, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFileIO, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFileIO, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, &buf)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrStorageUnavailable, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %w", domain.ErrStorageUnavailable, req.Method, req.URL.Path, err)
	}
	return nil
}
