package endpoint

import (
	"fmt"
	"strings"

	"github.com/carewellhq/carewell/model"
	"github.com/carewellhq/carewell/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type createContactMessageRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required"`
	Phone   string `json:"phone"`
	Subject string `json:"subject" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// CreateContactMessage stores a contact form submission. The endpoint is
// open so visitors can reach the clinic without an account.
func CreateContactMessage(c *gin.Context) {
	var req createContactMessageRequest
	if !bindJSONOrRespond(c, &req, "Invalid request body") {
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Message payload is empty or missing required fields",
			Err: fmt.Errorf("invalid payload"),
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	message := model.ContactMessage{
		Name:    util.NormalizeName(req.Name),
		Email:   req.Email,
		Phone:   req.Phone,
		Subject: req.Subject,
		Message: req.Message,
	}
	if err := db.Create(&message).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to create contact message",
			Err: err,
		})
		return
	}

	util.CallSuccessCreated(c, util.APISuccessParams{
		Msg:  "Contact message received",
		Data: message,
	})
}

func fetchContactMessages(db *gorm.DB, scope func(*gorm.DB) *gorm.DB) ([]model.ContactMessage, error) {
	var messages []model.ContactMessage
	query := db.Order("created_at DESC")
	if scope != nil {
		query = scope(query)
	}
	err := query.Find(&messages).Error
	return messages, err
}

// ListContactMessages returns all contact messages, newest first.
func ListContactMessages(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	messages, err := fetchContactMessages(db, nil)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to retrieve contact messages",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Contact messages retrieved",
		Data: map[string]interface{}{"total": len(messages), "messages": messages},
	})
}

// UnreadContactMessages returns only messages not yet marked read.
func UnreadContactMessages(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	messages, err := fetchContactMessages(db, func(q *gorm.DB) *gorm.DB {
		return q.Where("is_read = ?", false)
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to retrieve contact messages",
			Err: err,
		})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Unread contact messages retrieved",
		Data: map[string]interface{}{"total": len(messages), "messages": messages},
	})
}

// MarkContactMessageRead flags a message as handled.
func MarkContactMessageRead(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var message model.ContactMessage
	if err := db.First(&message, id).Error; err != nil {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Contact message not found",
			Err: err,
		})
		return
	}

	if !message.IsRead {
		if err := db.Model(&message).Update("is_read", true).Error; err != nil {
			util.CallServerError(c, util.APIErrorParams{
				Msg: "Failed to mark contact message read",
				Err: err,
			})
			return
		}
		message.IsRead = true
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Contact message marked read",
		Data: message,
	})
}
