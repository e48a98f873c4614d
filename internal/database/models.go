package database

import "time"

type NewsletterStatus string

const (
	NewsletterStatusDraft   NewsletterStatus = "draft"
	NewsletterStatusSending NewsletterStatus = "sending"
	NewsletterStatusSent    NewsletterStatus = "sent"
)

type User struct {
	ID         int64
	TelegramID int64
	Username   *string
	FirstName  *string
	LastName   *string
	Balance    float64
	Premium    bool
	CreatedAt  time.Time
	LastActive time.Time
}

type Category struct {
	ID   int64
	Name string
}

type Product struct {
	ID             int64
	Title          string
	Description    *string
	Price          float64
	FileID         *string
	PreviewImageID *string
	Available      bool
	CategoryID     *int64
	CategoryName   *string
	CreatedAt      time.Time
}

// Purchase хранит цену на момент сделки. Запись неизменяемая:
// последующие правки цены товара её не затрагивают.
type Purchase struct {
	ID            int64
	UserID        int64
	ProductID     *int64
	ProductTitle  string
	ProductFileID *string
	PurchasePrice float64
	PurchaseDate  time.Time
}

type Newsletter struct {
	ID              int64
	Title           string
	MessageText     string
	PhotoID         *string
	FileID          *string
	FileName        *string
	ButtonText      *string
	ButtonURL       *string
	Status          NewsletterStatus
	CreatedAt       time.Time
	SentAt          *time.Time
	RecipientsCount int
	SuccessCount    int
	ErrorCount      int
	SendTime        float64
}

// NewsletterStats записывается один раз при переходе в статус sent.
type NewsletterStats struct {
	RecipientsCount int
	SuccessCount    int
	ErrorCount      int
	SendTime        float64
}
