package notifications

import (
	"fmt"
	"html"
	"strings"
	"time"
	_ "time/tzdata"
)

var paris = loadParis()

func loadParis() *time.Location {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		return time.UTC
	}
	return loc
}

type Message struct {
	Subject string
	Text    string
	HTML    string
}

// RenderConfirmation builds the e-mail sent once a seat is confirmed.
func RenderConfirmation(in RegistrationConfirmation) Message {
	when := in.EventStart.In(paris).Format("02/01/2006 à 15:04")

	var text strings.Builder
	fmt.Fprintf(&text, "Bonjour %s,\n\n", in.Name)
	fmt.Fprintf(&text, "Votre inscription à « %s » est confirmée.\n", in.EventTitle)
	fmt.Fprintf(&text, "Date : %s\n", when)
	if in.EventAddress != "" {
		fmt.Fprintf(&text, "Lieu : %s\n", in.EventAddress)
	}
	fmt.Fprintf(&text, "Référence : %s\n\nÀ bientôt !\n", in.RegistrationID)

	var body strings.Builder
	fmt.Fprintf(&body, "<p>Bonjour %s,</p>", html.EscapeString(in.Name))
	fmt.Fprintf(&body, "<p>Votre inscription à <strong>%s</strong> est confirmée.</p><ul>", html.EscapeString(in.EventTitle))
	fmt.Fprintf(&body, "<li>Date : %s</li>", when)
	if in.EventAddress != "" {
		fmt.Fprintf(&body, "<li>Lieu : %s</li>", html.EscapeString(in.EventAddress))
	}
	fmt.Fprintf(&body, "<li>Référence : %s</li></ul><p>À bientôt !</p>", html.EscapeString(in.RegistrationID))

	return Message{
		Subject: "Inscription confirmée : " + in.EventTitle,
		Text:    text.String(),
		HTML:    body.String(),
	}
}
