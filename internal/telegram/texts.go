package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/qatestsmith/medicinereminderbot/internal/domain"
	"github.com/qatestsmith/medicinereminderbot/internal/flow"
	"github.com/qatestsmith/medicinereminderbot/internal/tz"
)

// Button labels. Reply-keyboard buttons arrive back as plain text, so these
// double as routing keys.
const (
	btnAddMedicine    = "➕ Add medicine"
	btnMyMedicines    = "📋 My medicines"
	btnDeleteMedicine = "🗑 Delete medicine"
	btnChangeTimezone = "🌍 Change timezone"
	btnHelp           = "❓ Help"
	btnCancel         = "❌ Cancel"

	btnSave    = "✅ Save"
	btnAddTime = "➕ Add another time"
	btnEdit    = "✏️ Edit"

	btnConfirmDelete  = "✅ Yes, delete"
	btnDeleteAll      = "⚠️ Delete ALL medicines"
	btnDeleteAllYes   = "⚠️ YES, delete everything"
	btnDeleteAllFinal = "🚨 CONFIRM DELETION"
	btnDeleteAllNo    = "❌ NO, keep my medicines"
)

const (
	welcomeText = "🌍 Welcome to the medicine assistant!\n\nChoose your timezone:"
	deniedText  = "❌ Sorry, access denied.\nContact the administrator to get access."
	helpText    = "💊 I remind you to take your medicines.\n\n" +
		"➕ Add medicine — guided setup: name, times, dosage\n" +
		"📋 My medicines — everything you have saved\n" +
		"🗑 Delete medicine — remove a medicine or a single reminder\n" +
		"🌍 Change timezone — reminders follow your local time\n\n" +
		"/cancel aborts any dialogue."
	mainMenuText = "🏠 Main menu\n\nChoose an action:"

	askNameText   = "💊 Adding a medicine\n\nEnter the medicine name:"
	askTimeText   = "Enter a time as HH:MM\nExamples: 08:00, 14:30, 20:15\n\nOr pick a preset:"
	askDosageText = "Enter the dosage (e.g. 1 tablet):"

	badTimezoneText = "❌ Please pick a timezone from the keyboard."
	badNameText     = "❌ Invalid name. It must be 1-100 characters. Try again:"
	badTimeText     = "❌ Invalid time. Use HH:MM with hours 0-23 and minutes 0-59, e.g. 08:30. Try again:"
	badDosageText   = "❌ Dosage cannot be empty. Try again:"
	badChoiceText   = "❌ Invalid choice. Pick an option from the keyboard."

	savedText     = "✅ Saved! I will remind you at the configured times."
	cancelledText = "Cancelled. Nothing was saved."
	storageText   = "❌ Something went wrong while saving. Please try again."
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnAddMedicine)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnMyMedicines)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnDeleteMedicine)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnChangeTimezone)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnHelp)),
	)
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancel)),
	)
}

func timezoneKeyboard(catalog *tz.Catalog, withCancel bool) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for _, e := range catalog.Entries() {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(e.Label)))
	}
	if withCancel {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancel)))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.OneTimeKeyboard = true
	return kb
}

func timePresetsKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("08:00"),
			tgbotapi.NewKeyboardButton("14:00"),
			tgbotapi.NewKeyboardButton("20:00"),
		),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancel)),
	)
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSave),
			tgbotapi.NewKeyboardButton(btnAddTime),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnEdit),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
}

func deleteListKeyboard(meds []domain.Medicine) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for i, m := range meds {
		label := fmt.Sprintf("%d. %s (%d reminders)", i+1, m.Name, len(activeReminders(m)))
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(label)))
	}
	rows = append(rows,
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnDeleteAll)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancel)),
	)
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.OneTimeKeyboard = true
	return kb
}

func reminderDeleteKeyboard(m *domain.Medicine) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(fmt.Sprintf("🗑 Delete all of '%s'", m.Name)),
		),
	}
	for _, r := range activeReminders(*m) {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(fmt.Sprintf("🕐 Delete %s — %s", r.Time, r.Dosage)),
		))
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancel)))
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.OneTimeKeyboard = true
	return kb
}

func confirmDeleteKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnConfirmDelete),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
}

func deleteAllFirstKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnDeleteAllYes)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancel)),
	)
}

func deleteAllFinalKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnDeleteAllFinal)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnDeleteAllNo)),
	)
}

func activeReminders(m domain.Medicine) []domain.Reminder {
	var out []domain.Reminder
	for _, r := range m.Reminders {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}

func formatMedicineList(meds []domain.Medicine) string {
	if len(meds) == 0 {
		return "📋 You have no saved medicines yet."
	}
	var b strings.Builder
	b.WriteString("📋 Your medicines:\n\n")
	for i, m := range meds {
		fmt.Fprintf(&b, "%d. 💊 %s\n", i+1, m.Name)
		active := activeReminders(m)
		if len(active) == 0 {
			b.WriteString("   (no active reminders)\n")
		}
		for _, r := range active {
			fmt.Fprintf(&b, "   🕐 %s — %s\n", r.Time, r.Dosage)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatDraft(d flow.Draft) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💊 %s\n", d.Name)
	for _, e := range d.Entries {
		fmt.Fprintf(&b, "🕐 %s — %s\n", e.Time, e.Dosage)
	}
	b.WriteString("\nSave it?")
	return b.String()
}
