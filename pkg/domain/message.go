package domain

// MessageType identifies an outbound message unit.
type MessageType string

const (
	MessageText         MessageType = "text"
	MessageQuickReplies MessageType = "quick_replies"
	MessageProductCards MessageType = "product_cards"
)

// QuickReply is a tappable option rendered by the channel.
type QuickReply struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// ProductCard is one card of a product_cards message.
type ProductCard struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price,omitempty"`
	Description string  `json:"description,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
}

// Message is an abstract output unit. The interpreter never sends messages itself;
// the channel adapter renders and transmits them.
type Message struct {
	Type         MessageType   `json:"type"`
	Text         string        `json:"text,omitempty"`
	QuickReplies []QuickReply  `json:"quick_replies,omitempty"`
	Cards        []ProductCard `json:"cards,omitempty"`
}

// TextMessage builds a plain text message.
func TextMessage(text string) Message {
	return Message{Type: MessageText, Text: text}
}

// Item is a catalog entry shown by show_items nodes.
type Item struct {
	ID          string  `json:"id" mapstructure:"id"`
	Name        string  `json:"name" mapstructure:"name"`
	Price       float64 `json:"price,omitempty" mapstructure:"price"`
	Description string  `json:"description,omitempty" mapstructure:"description"`
	ImageURL    string  `json:"image_url,omitempty" mapstructure:"image_url"`
	Category    string  `json:"category,omitempty" mapstructure:"category"`
}

// Card converts an item into a product card.
func (i Item) Card() ProductCard {
	return ProductCard{
		ID:          i.ID,
		Name:        i.Name,
		Price:       i.Price,
		Description: i.Description,
		ImageURL:    i.ImageURL,
	}
}

// AsVariable converts the item into the map form stored in the variable environment.
func (i Item) AsVariable() map[string]any {
	return map[string]any{
		"id":          i.ID,
		"name":        i.Name,
		"price":       i.Price,
		"description": i.Description,
		"image_url":   i.ImageURL,
		"category":    i.Category,
	}
}
