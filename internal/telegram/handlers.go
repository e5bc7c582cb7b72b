package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/qatestsmith/medicinereminderbot/internal/domain"
	"github.com/qatestsmith/medicinereminderbot/internal/flow"
	"github.com/qatestsmith/medicinereminderbot/internal/store"
)

// --- Entry points ---

func (r *Router) handleStart(ctx context.Context, chatID int64) {
	r.clearSelection(chatID)
	_, err := r.repo.GetUser(ctx, chatID)
	switch {
	case err == nil:
		r.sendWithKeyboard(chatID, mainMenuText, mainMenuKeyboard())
	case errors.Is(err, store.ErrNotFound):
		// onboarding: timezone first, then the regular entry flow
		r.flows.Start(chatID, true)
		r.sendWithKeyboard(chatID, welcomeText, timezoneKeyboard(r.catalog, false))
	default:
		r.log.Error("get user failed", zap.Error(err))
		r.sendText(chatID, storageText)
	}
}

func (r *Router) handleCancel(chatID int64) {
	r.flows.Cancel(chatID)
	r.clearSelection(chatID)
	r.sendWithKeyboard(chatID, cancelledText, mainMenuKeyboard())
}

func (r *Router) handleAddMedicine(ctx context.Context, chatID int64) {
	r.clearSelection(chatID)
	_, err := r.repo.GetUser(ctx, chatID)
	switch {
	case err == nil:
		r.flows.Start(chatID, false)
		r.sendWithKeyboard(chatID, askNameText, cancelKeyboard())
	case errors.Is(err, store.ErrNotFound):
		r.flows.Start(chatID, true)
		r.sendWithKeyboard(chatID, welcomeText, timezoneKeyboard(r.catalog, false))
	default:
		r.log.Error("get user failed", zap.Error(err))
		r.sendText(chatID, storageText)
	}
}

func (r *Router) handleShowMedicines(ctx context.Context, chatID int64) {
	meds, err := r.repo.ListMedicines(ctx, chatID)
	if err != nil {
		r.log.Error("list medicines failed", zap.Error(err))
		r.sendText(chatID, storageText)
		return
	}
	r.sendWithKeyboard(chatID, formatMedicineList(meds), mainMenuKeyboard())
}

func (r *Router) handleChangeTimezone(ctx context.Context, chatID int64) {
	u, err := r.repo.GetUser(ctx, chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.handleStart(ctx, chatID)
			return
		}
		r.log.Error("get user failed", zap.Error(err))
		r.sendText(chatID, storageText)
		return
	}
	current := u.Timezone
	if label, ok := r.catalog.LabelFor(u.Timezone); ok {
		current = label
	}
	r.setSelection(chatID, &selection{kind: selTimezoneChange})
	r.sendWithKeyboard(chatID,
		fmt.Sprintf("🌍 Change timezone\n\nCurrent: %s\n\nChoose a new one:", current),
		timezoneKeyboard(r.catalog, true))
}

func (r *Router) handleDeleteMenu(ctx context.Context, chatID int64) {
	meds, err := r.repo.ListMedicines(ctx, chatID)
	if err != nil {
		r.log.Error("list medicines failed", zap.Error(err))
		r.sendText(chatID, storageText)
		return
	}
	if len(meds) == 0 {
		r.sendWithKeyboard(chatID, "❌ You have no saved medicines to delete.", mainMenuKeyboard())
		return
	}
	r.setSelection(chatID, &selection{kind: selDeleteMedicine, medicines: meds})
	r.sendWithKeyboard(chatID, "🗑 Deleting medicines\n\nChoose what to delete:", deleteListKeyboard(meds))
}

// --- Dialogue input (entry flow and pending selections) ---

func (r *Router) handleDialogueInput(ctx context.Context, chatID int64, username, text string) {
	if sel := r.getSelection(chatID); sel != nil {
		r.handleSelectionInput(ctx, chatID, sel, text)
		return
	}

	switch r.flows.State(chatID) {
	case flow.StateTimezone:
		r.stepTimezone(ctx, chatID, username, text)
	case flow.StateName:
		r.stepName(chatID, text)
	case flow.StateTime:
		r.stepTime(chatID, text)
	case flow.StateDosage:
		r.stepDosage(chatID, text)
	case flow.StateConfirm:
		r.stepConfirm(ctx, chatID, text)
	default:
		r.sendWithKeyboard(chatID, helpText, mainMenuKeyboard())
	}
}

func (r *Router) stepTimezone(ctx context.Context, chatID int64, username, text string) {
	zone, err := r.flows.SubmitTimezone(chatID, text)
	if err != nil {
		r.sendText(chatID, badTimezoneText)
		return
	}
	if err := r.repo.UpsertUser(ctx, &domain.User{
		ChatID:   chatID,
		Username: username,
		Timezone: zone,
	}); err != nil {
		r.log.Error("upsert user failed", zap.Error(err))
		r.flows.Cancel(chatID)
		r.sendText(chatID, storageText)
		return
	}
	r.sendWithKeyboard(chatID,
		fmt.Sprintf("✅ Timezone set: %s\n\n%s", zone, askNameText),
		cancelKeyboard())
}

func (r *Router) stepName(chatID int64, text string) {
	if err := r.flows.SubmitName(chatID, text); err != nil {
		r.sendText(chatID, badNameText)
		return
	}
	// after an edit the flow jumps straight back to confirmation
	if r.flows.State(chatID) == flow.StateConfirm {
		r.showConfirmation(chatID)
		return
	}
	r.sendWithKeyboard(chatID, askTimeText, timePresetsKeyboard())
}

func (r *Router) stepTime(chatID int64, text string) {
	if _, err := r.flows.SubmitTime(chatID, text); err != nil {
		r.sendWithKeyboard(chatID, badTimeText, timePresetsKeyboard())
		return
	}
	r.sendWithKeyboard(chatID, askDosageText, cancelKeyboard())
}

func (r *Router) stepDosage(chatID int64, text string) {
	if _, err := r.flows.SubmitDosage(chatID, text); err != nil {
		r.sendText(chatID, badDosageText)
		return
	}
	r.showConfirmation(chatID)
}

func (r *Router) showConfirmation(chatID int64) {
	draft, ok := r.flows.Snapshot(chatID)
	if !ok {
		r.sendWithKeyboard(chatID, helpText, mainMenuKeyboard())
		return
	}
	r.sendWithKeyboard(chatID, formatDraft(draft), confirmKeyboard())
}

func (r *Router) stepConfirm(ctx context.Context, chatID int64, text string) {
	switch text {
	case btnSave:
		draft, err := r.flows.Save(chatID)
		if err != nil {
			r.sendText(chatID, badChoiceText)
			return
		}
		items := make([]domain.ReminderInput, 0, len(draft.Entries))
		for _, e := range draft.Entries {
			items = append(items, domain.ReminderInput{Time: e.Time, Dosage: e.Dosage})
		}
		if _, err := r.repo.CreateMedicine(ctx, chatID, draft.Name, items); err != nil {
			r.log.Error("create medicine failed", zap.Error(err))
			r.sendWithKeyboard(chatID, storageText, mainMenuKeyboard())
			return
		}
		r.notifyScheduler()
		r.sendWithKeyboard(chatID, savedText, mainMenuKeyboard())
	case btnAddTime:
		if err := r.flows.AddAnotherTime(chatID); err != nil {
			r.sendText(chatID, badChoiceText)
			return
		}
		r.sendWithKeyboard(chatID, askTimeText, timePresetsKeyboard())
	case btnEdit:
		prior, err := r.flows.Edit(chatID)
		if err != nil {
			r.sendText(chatID, badChoiceText)
			return
		}
		r.sendWithKeyboard(chatID,
			fmt.Sprintf("✏️ Current name: %s\n\nEnter a new name:", prior.Name),
			cancelKeyboard())
	default:
		r.sendWithKeyboard(chatID, badChoiceText, confirmKeyboard())
	}
}

// --- Selection dialogues (timezone change, deletions) ---

func (r *Router) handleSelectionInput(ctx context.Context, chatID int64, sel *selection, text string) {
	switch sel.kind {
	case selTimezoneChange:
		r.selectTimezone(ctx, chatID, text)
	case selDeleteMedicine:
		r.selectMedicineForDeletion(chatID, sel, text)
	case selDeleteReminder:
		r.selectReminderForDeletion(chatID, sel, text)
	case selConfirmDelete:
		r.confirmDeletion(ctx, chatID, sel, text)
	case selDeleteAllFirst:
		r.confirmDeleteAllFirst(chatID, text)
	case selDeleteAllFinal:
		r.confirmDeleteAllFinal(ctx, chatID, text)
	}
}

func (r *Router) selectTimezone(ctx context.Context, chatID int64, text string) {
	zone, ok := r.catalog.Resolve(text)
	if !ok {
		r.sendText(chatID, badTimezoneText)
		return
	}
	if err := r.repo.SetTimezone(ctx, chatID, zone); err != nil {
		r.log.Error("set timezone failed", zap.Error(err))
		r.sendText(chatID, storageText)
		return
	}
	r.clearSelection(chatID)
	r.notifyScheduler()
	r.sendWithKeyboard(chatID,
		fmt.Sprintf("✅ Timezone changed: %s\nAll reminders now follow the new local time.", zone),
		mainMenuKeyboard())
}

func (r *Router) selectMedicineForDeletion(chatID int64, sel *selection, text string) {
	if text == btnDeleteAll {
		r.setSelection(chatID, &selection{kind: selDeleteAllFirst})
		total := 0
		for _, m := range sel.medicines {
			total += len(activeReminders(m))
		}
		r.sendWithKeyboard(chatID, fmt.Sprintf(
			"⚠️ WARNING!\n\nYou are about to delete ALL your medicines:\n"+
				"📊 Medicines: %d\n📊 Reminders: %d\n\nThis cannot be undone. Continue?",
			len(sel.medicines), total), deleteAllFirstKeyboard())
		return
	}

	idx, err := strconv.Atoi(strings.SplitN(text, ".", 2)[0])
	if err != nil || idx < 1 || idx > len(sel.medicines) {
		r.sendText(chatID, badChoiceText)
		return
	}
	med := sel.medicines[idx-1]

	if len(activeReminders(med)) <= 1 {
		r.setSelection(chatID, &selection{kind: selConfirmDelete, medicine: &med})
		r.sendWithKeyboard(chatID, fmt.Sprintf(
			"🗑 Confirm deletion\n\n💊 %s\n\nThis removes all its reminders. Delete?",
			med.Name), confirmDeleteKeyboard())
		return
	}

	r.setSelection(chatID, &selection{kind: selDeleteReminder, medicine: &med})
	r.sendWithKeyboard(chatID, fmt.Sprintf(
		"🗑 What should be deleted?\n\n💊 %s has %d reminders.\nChoose:",
		med.Name, len(activeReminders(med))), reminderDeleteKeyboard(&med))
}

func (r *Router) selectReminderForDeletion(chatID int64, sel *selection, text string) {
	if strings.HasPrefix(text, "🗑 Delete all of") {
		r.setSelection(chatID, &selection{kind: selConfirmDelete, medicine: sel.medicine})
		r.sendWithKeyboard(chatID, fmt.Sprintf(
			"🗑 Confirm deletion\n\n💊 %s\n\nThis removes all its reminders. Delete?",
			sel.medicine.Name), confirmDeleteKeyboard())
		return
	}

	rest, found := strings.CutPrefix(text, "🕐 Delete ")
	if !found {
		r.sendText(chatID, badChoiceText)
		return
	}
	timePart := strings.SplitN(rest, " — ", 2)[0]
	for i := range sel.medicine.Reminders {
		rem := &sel.medicine.Reminders[i]
		if rem.Active && rem.Time == timePart {
			r.setSelection(chatID, &selection{kind: selConfirmDelete, medicine: sel.medicine, reminder: rem})
			r.sendWithKeyboard(chatID, fmt.Sprintf(
				"🗑 Confirm deletion\n\n💊 %s\n🕐 %s — %s\n\nDelete this reminder?",
				sel.medicine.Name, rem.Time, rem.Dosage), confirmDeleteKeyboard())
			return
		}
	}
	r.sendText(chatID, badChoiceText)
}

func (r *Router) confirmDeletion(ctx context.Context, chatID int64, sel *selection, text string) {
	if text != btnConfirmDelete {
		r.sendWithKeyboard(chatID, badChoiceText, confirmDeleteKeyboard())
		return
	}
	var err error
	var done string
	if sel.reminder != nil {
		err = r.repo.DeleteReminder(ctx, sel.reminder.ID, chatID)
		done = fmt.Sprintf("✅ Reminder deleted.\n💊 %s\n🕐 %s — %s",
			sel.medicine.Name, sel.reminder.Time, sel.reminder.Dosage)
	} else {
		err = r.repo.DeleteMedicine(ctx, sel.medicine.ID, chatID)
		done = fmt.Sprintf("✅ '%s' deleted along with all its reminders.", sel.medicine.Name)
	}
	r.clearSelection(chatID)
	if err != nil {
		r.log.Error("delete failed", zap.Error(err))
		r.sendWithKeyboard(chatID, storageText, mainMenuKeyboard())
		return
	}
	r.notifyScheduler()
	r.sendWithKeyboard(chatID, done, mainMenuKeyboard())
}

func (r *Router) confirmDeleteAllFirst(chatID int64, text string) {
	if text != btnDeleteAllYes {
		r.sendWithKeyboard(chatID, badChoiceText, deleteAllFirstKeyboard())
		return
	}
	r.setSelection(chatID, &selection{kind: selDeleteAllFinal})
	r.sendWithKeyboard(chatID,
		"🚨 LAST CHECK!\n\nAfter pressing CONFIRM all your medicines and reminders "+
			"are gone forever.\n\nThis is your last chance to change your mind.",
		deleteAllFinalKeyboard())
}

func (r *Router) confirmDeleteAllFinal(ctx context.Context, chatID int64, text string) {
	if text == btnDeleteAllNo {
		r.clearSelection(chatID)
		r.sendWithKeyboard(chatID, "✅ Cancelled. Your medicines are safe.", mainMenuKeyboard())
		return
	}
	if text != btnDeleteAllFinal {
		r.sendWithKeyboard(chatID, badChoiceText, deleteAllFinalKeyboard())
		return
	}
	count, err := r.repo.DeleteAllMedicines(ctx, chatID)
	r.clearSelection(chatID)
	if err != nil {
		r.log.Error("delete all failed", zap.Error(err))
		r.sendWithKeyboard(chatID, storageText, mainMenuKeyboard())
		return
	}
	r.notifyScheduler()
	r.sendWithKeyboard(chatID,
		fmt.Sprintf("✅ Done. Deleted %d medicines and all their reminders.", count),
		mainMenuKeyboard())
}
