package mailer

import "embed"

const (
	FromName                 = "Pressroom"
	maxRetries               = 3
	AccountApprovedTemplate  = "account_approved.tmpl"
	AccountSuspendedTemplate = "account_suspended.tmpl"
)

//go:embed "templates"
var FS embed.FS

type Client interface {
	Send(templateFile, username, email string, data any) (int, error)
}
