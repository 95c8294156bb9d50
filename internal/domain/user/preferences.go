package user

import (
	"strconv"
)

// Preference keys constants
const (
	PrefRemindersEnabled = "reminders_enabled"
	PrefTelegramChatID   = "telegram_chat_id"
)

// UserPreferences holds all user preferences
type UserPreferences struct {
	userID      ID
	preferences map[string]string
}

// NewUserPreferences creates a new user preferences with default values
func NewUserPreferences(userID ID) *UserPreferences {
	return &UserPreferences{
		userID: userID,
		preferences: map[string]string{
			PrefRemindersEnabled: "true",
		},
	}
}

func (up *UserPreferences) UserID() ID {
	return up.userID
}

func (up *UserPreferences) GetBoolPreference(key string) bool {
	value, exists := up.preferences[key]
	if !exists {
		return key == PrefRemindersEnabled
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return false
	}
	return boolValue
}

func (up *UserPreferences) SetBoolPreference(key string, value bool) {
	up.preferences[key] = strconv.FormatBool(value)
}

func (up *UserPreferences) GetStringPreference(key string) string {
	return up.preferences[key]
}

func (up *UserPreferences) SetStringPreference(key, value string) {
	up.preferences[key] = value
}

func (up *UserPreferences) GetAllPreferences() map[string]string {
	return up.preferences
}

func (up *UserPreferences) SetPreferences(preferences map[string]string) {
	up.preferences = preferences
}

func (up *UserPreferences) RemindersEnabled() bool {
	return up.GetBoolPreference(PrefRemindersEnabled)
}

func (up *UserPreferences) SetRemindersEnabled(enabled bool) {
	up.SetBoolPreference(PrefRemindersEnabled, enabled)
}

// TelegramChatID returns the linked chat, or 0 when none is linked
func (up *UserPreferences) TelegramChatID() int64 {
	id, err := strconv.ParseInt(up.preferences[PrefTelegramChatID], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func (up *UserPreferences) SetTelegramChatID(chatID int64) {
	up.preferences[PrefTelegramChatID] = strconv.FormatInt(chatID, 10)
}
