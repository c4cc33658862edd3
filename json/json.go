// Package json persists chats as versioned JSON files.
package json

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/scry"
)

// envelope is the v1 wire format for a persisted chat.
type envelope struct {
	Version   int           `json:"version"`
	ID        string        `json:"id"`
	Title     string        `json:"title,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Exchanges []exchangeDTO `json:"exchanges"`
}

type exchangeDTO struct {
	Question  string    `json:"question"`
	Answer    answerDTO `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

type answerDTO struct {
	SessionID         string          `json:"session_id,omitempty"`
	MessageID         string          `json:"message_id,omitempty"`
	Title             string          `json:"title,omitempty"`
	Content           string          `json:"content"`
	Items             []itemDTO       `json:"items,omitempty"`
	InlineSuggestions string          `json:"inline_suggestions,omitempty"`
	Suggestions       []suggestionDTO `json:"suggestions,omitempty"`
	ChartData         json.RawMessage `json:"chart_data,omitempty"`
	Citations         []string        `json:"citations,omitempty"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
	Stopped           bool            `json:"stopped,omitempty"`
	Partial           bool            `json:"partial,omitempty"`
	Timestamp         time.Time       `json:"timestamp"`
}

type suggestionDTO struct {
	Label  string          `json:"label"`
	Action string          `json:"action,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// itemDTO is the JSON representation of an Item with a type discriminator.
// Transient items are never persisted, so no loading/research variants exist
// here.
type itemDTO struct {
	Type string `json:"type"`
	ID   string `json:"id"`

	// markdown
	Text      *string  `json:"text,omitempty"`
	Citations []string `json:"citations,omitempty"`

	// chart
	Config *json.RawMessage `json:"config,omitempty"`
	Data   *json.RawMessage `json:"data,omitempty"`

	// csv
	Title    *string `json:"title,omitempty"`
	URL      *string `json:"url,omitempty"`
	Filename *string `json:"filename,omitempty"`
	RowCount *int    `json:"row_count,omitempty"`

	// images
	Images []imageDTO `json:"images,omitempty"`

	// error
	Message     *string `json:"message,omitempty"`
	Code        *string `json:"code,omitempty"`
	Recoverable *bool   `json:"recoverable,omitempty"`

	// suggestions
	Suggestions []suggestionDTO `json:"suggestions,omitempty"`

	// metadata
	Metadata *json.RawMessage `json:"metadata,omitempty"`
}

type imageDTO struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	Alt      string `json:"alt,omitempty"`
}

// MarshalChat serializes a Chat to JSON in v1 envelope format.
func MarshalChat(c scry.Chat) ([]byte, error) {
	env := envelope{
		Version:   1,
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Exchanges: make([]exchangeDTO, len(c.Exchanges)),
	}
	for i, ex := range c.Exchanges {
		dto, err := marshalExchange(ex)
		if err != nil {
			return nil, fmt.Errorf("exchange %d: %w", i, err)
		}
		env.Exchanges[i] = dto
	}
	return json.MarshalIndent(env, "", "  ")
}

// UnmarshalChat deserializes a Chat from JSON in v1 envelope format.
func UnmarshalChat(data []byte) (scry.Chat, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return scry.Chat{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return scry.Chat{}, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	exchanges := make([]scry.Exchange, len(env.Exchanges))
	for i, dto := range env.Exchanges {
		ex, err := unmarshalExchange(dto)
		if err != nil {
			return scry.Chat{}, fmt.Errorf("exchange %d: %w", i, err)
		}
		exchanges[i] = ex
	}
	return scry.Chat{
		ID:        env.ID,
		Title:     env.Title,
		CreatedAt: env.CreatedAt,
		UpdatedAt: env.UpdatedAt,
		Exchanges: exchanges,
	}, nil
}

// Save writes a Chat to a JSON file, creating parent directories as needed.
func Save(path string, c scry.Chat) error {
	data, err := MarshalChat(c)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads a Chat from a JSON file.
func Load(path string) (scry.Chat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return scry.Chat{}, fmt.Errorf("read file: %w", err)
	}
	return UnmarshalChat(data)
}

func marshalExchange(ex scry.Exchange) (exchangeDTO, error) {
	answer, err := marshalAnswer(ex.Answer)
	if err != nil {
		return exchangeDTO{}, err
	}
	return exchangeDTO{
		Question:  ex.Question,
		Answer:    answer,
		Timestamp: ex.Timestamp,
	}, nil
}

func unmarshalExchange(dto exchangeDTO) (scry.Exchange, error) {
	answer, err := unmarshalAnswer(dto.Answer)
	if err != nil {
		return scry.Exchange{}, err
	}
	return scry.Exchange{
		Question:  dto.Question,
		Answer:    answer,
		Timestamp: dto.Timestamp,
	}, nil
}

func marshalAnswer(a scry.Answer) (answerDTO, error) {
	items := make([]itemDTO, 0, len(a.Items))
	for i, it := range a.Items {
		dto, err := marshalItem(it)
		if err != nil {
			return answerDTO{}, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, dto)
	}
	return answerDTO{
		SessionID:         a.SessionID,
		MessageID:         a.MessageID,
		Title:             a.Title,
		Content:           a.Content,
		Items:             items,
		InlineSuggestions: a.InlineSuggestions,
		Suggestions:       marshalSuggestions(a.Suggestions),
		ChartData:         a.ChartData,
		Citations:         a.Citations,
		Metadata:          a.Metadata,
		Stopped:           a.Stopped,
		Partial:           a.Partial,
		Timestamp:         a.Timestamp,
	}, nil
}

func unmarshalAnswer(dto answerDTO) (scry.Answer, error) {
	items := make([]scry.Item, 0, len(dto.Items))
	for i, idto := range dto.Items {
		it, err := unmarshalItem(idto)
		if err != nil {
			return scry.Answer{}, fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, it)
	}
	return scry.Answer{
		SessionID:         dto.SessionID,
		MessageID:         dto.MessageID,
		Title:             dto.Title,
		Content:           dto.Content,
		Items:             items,
		InlineSuggestions: dto.InlineSuggestions,
		Suggestions:       unmarshalSuggestions(dto.Suggestions),
		ChartData:         dto.ChartData,
		Citations:         dto.Citations,
		Metadata:          dto.Metadata,
		Stopped:           dto.Stopped,
		Partial:           dto.Partial,
		Timestamp:         dto.Timestamp,
	}, nil
}

func marshalItem(it scry.Item) (itemDTO, error) {
	switch v := it.(type) {
	case scry.MarkdownItem:
		return itemDTO{Type: "markdown", ID: v.ItemID, Text: &v.Text, Citations: v.Citations}, nil
	case scry.ChartItem:
		config := v.Config.Raw
		data := v.Data
		return itemDTO{Type: "chart", ID: v.ItemID, Config: &config, Data: &data}, nil
	case scry.CsvItem:
		return itemDTO{
			Type:     "csv",
			ID:       v.ItemID,
			Title:    &v.Title,
			URL:      &v.URL,
			Filename: &v.Filename,
			RowCount: &v.RowCount,
		}, nil
	case scry.ImagesItem:
		images := make([]imageDTO, len(v.Images))
		for i, img := range v.Images {
			images[i] = imageDTO{URL: img.URL, MimeType: img.MimeType, Alt: img.Alt}
		}
		return itemDTO{Type: "images", ID: v.ItemID, Images: images}, nil
	case scry.ErrorItem:
		return itemDTO{
			Type:        "error",
			ID:          v.ItemID,
			Message:     &v.Message,
			Code:        &v.Code,
			Recoverable: &v.Recoverable,
		}, nil
	case scry.SuggestionsItem:
		return itemDTO{Type: "suggestions", ID: v.ItemID, Suggestions: marshalSuggestions(v.Suggestions)}, nil
	case scry.MetadataItem:
		metadata := v.Metadata
		return itemDTO{Type: "metadata", ID: v.ItemID, Metadata: &metadata}, nil
	default:
		return itemDTO{}, fmt.Errorf("unpersistable item type: %T", it)
	}
}

func unmarshalItem(dto itemDTO) (scry.Item, error) {
	switch dto.Type {
	case "markdown":
		var text string
		if dto.Text != nil {
			text = *dto.Text
		}
		return scry.MarkdownItem{ItemID: dto.ID, Text: text, Citations: dto.Citations}, nil
	case "chart":
		var config scry.ChartConfig
		if dto.Config != nil {
			config.Raw = *dto.Config
			var meta struct {
				ID    string `json:"id"`
				Type  string `json:"type"`
				Title string `json:"title"`
			}
			if err := json.Unmarshal(*dto.Config, &meta); err == nil {
				config.ID, config.Type, config.Title = meta.ID, meta.Type, meta.Title
			}
		}
		var data json.RawMessage
		if dto.Data != nil {
			data = *dto.Data
		}
		return scry.ChartItem{ItemID: dto.ID, Config: config, Data: data}, nil
	case "csv":
		item := scry.CsvItem{ItemID: dto.ID}
		if dto.Title != nil {
			item.Title = *dto.Title
		}
		if dto.URL != nil {
			item.URL = *dto.URL
		}
		if dto.Filename != nil {
			item.Filename = *dto.Filename
		}
		if dto.RowCount != nil {
			item.RowCount = *dto.RowCount
		}
		return item, nil
	case "images":
		images := make([]scry.StreamImage, len(dto.Images))
		for i, img := range dto.Images {
			images[i] = scry.StreamImage{URL: img.URL, MimeType: img.MimeType, Alt: img.Alt}
		}
		return scry.ImagesItem{ItemID: dto.ID, Images: images}, nil
	case "error":
		item := scry.ErrorItem{ItemID: dto.ID}
		if dto.Message != nil {
			item.Message = *dto.Message
		}
		if dto.Code != nil {
			item.Code = *dto.Code
		}
		if dto.Recoverable != nil {
			item.Recoverable = *dto.Recoverable
		}
		return item, nil
	case "suggestions":
		return scry.SuggestionsItem{ItemID: dto.ID, Suggestions: unmarshalSuggestions(dto.Suggestions)}, nil
	case "metadata":
		var metadata json.RawMessage
		if dto.Metadata != nil {
			metadata = *dto.Metadata
		}
		return scry.MetadataItem{ItemID: dto.ID, Metadata: metadata}, nil
	default:
		return nil, fmt.Errorf("unknown item type: %q", dto.Type)
	}
}

func marshalSuggestions(suggestions []scry.Suggestion) []suggestionDTO {
	if len(suggestions) == 0 {
		return nil
	}
	result := make([]suggestionDTO, len(suggestions))
	for i, s := range suggestions {
		result[i] = suggestionDTO{Label: s.Label, Action: s.Action, Params: s.Params}
	}
	return result
}

func unmarshalSuggestions(dtos []suggestionDTO) []scry.Suggestion {
	if len(dtos) == 0 {
		return nil
	}
	result := make([]scry.Suggestion, len(dtos))
	for i, dto := range dtos {
		result[i] = scry.Suggestion{Label: dto.Label, Action: dto.Action, Params: dto.Params}
	}
	return result
}
