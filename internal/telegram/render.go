package telegram

import (
	"html"
	"strings"

	"roomchat/backend/internal/localization"
	"roomchat/backend/internal/models"

	"github.com/samber/lo"
)

// Renderer turns hub envelopes into plain chat text. Events a chat user
// has no use for (counts, typing, session tokens) render as "".
type Renderer struct {
	loc *localization.Localizer
}

func NewRenderer(loc *localization.Localizer) *Renderer {
	return &Renderer{loc: loc}
}

func (r *Renderer) Render(lang string, env models.Envelope) string {
	f := func(key string, args ...any) string { return r.loc.Format(lang, key, args...) }

	switch data := env.Data.(type) {
	case models.ErrorPayload:
		return f("error", data.Message)

	case models.MessageView:
		return f("add_message", env.Room, data.User.Name, html.UnescapeString(data.Content))

	case models.AddUserPayload:
		return f("add_user", env.Room, data.User.Name)

	case models.UserNamePayload:
		return f("change_user_name", env.Room, data.OldName, data.User.Name)

	case models.TargetPayload:
		switch env.Type {
		case models.EventUserAllowed:
			return f("user_allowed", data.User, data.Room)
		case models.EventUserUnallowed:
			return f("user_unallowed", data.User, data.Room)
		case models.EventOwnerMade:
			return f("owner_made", data.User, data.Room)
		case models.EventOwnerRemoved:
			return f("owner_removed", data.User, data.Room)
		case models.EventLockRoom:
			return f("lock_room", data.Room)
		case models.EventRoomLocked:
			return f("room_locked", data.Room)
		case models.EventRoomClosed:
			return f("room_closed", data.Room)
		case models.EventRoomOpened:
			return f("room_opened", data.Room)
		}

	case models.TopicChangedPayload:
		if data.Cleared {
			return f("topic_cleared", env.Room)
		}
		return f("topic_changed", env.Room, data.Topic)

	case models.NoteChangedPayload:
		switch {
		case data.IsAfk:
			return f("afk_set")
		case data.Cleared:
			return f("note_cleared")
		}
		return f("note_set")

	case models.FlagChangedPayload:
		if data.Cleared {
			return f("flag_cleared")
		}
		return f("flag_set", data.Country)

	case models.PrivateMessagePayload:
		return f("private_message", data.From, data.To, data.Content)

	case models.NudgePayload:
		if data.To != "" {
			return f("nudge_user", data.From)
		}
		return f("nudge_room", env.Room, data.From)

	case models.MeMessagePayload:
		return f("me_message", env.Room, data.User, data.Content)

	case models.NotificationPayload:
		return f("post_notification", env.Room, data.Message)

	case models.NamesPayload:
		names := r.list(lang, data.Names)
		switch env.Type {
		case models.EventListUsers:
			return f("list_users", names)
		case models.EventShowUsersInRoom:
			return f("users_in_room", env.Room, names)
		case models.EventLogOut:
			return f("log_out")
		}

	case models.UserRoomsPayload:
		return f("user_room_list", data.User.Name, r.list(lang, data.Rooms))

	case models.UserInfoView:
		lines := []string{f("user_info", data.Name, data.Status, r.list(lang, data.Rooms), r.list(lang, data.OwnedRooms))}
		if data.IsAfk {
			lines = append(lines, f("user_info_afk", data.AfkNote))
		}
		if data.Note != "" {
			lines = append(lines, f("user_info_note", data.Note))
		}
		return strings.Join(lines, "\n")

	case []models.CommandView:
		return f("commands", strings.Join(lo.Map(data, func(c models.CommandView, _ int) string {
			return c.Usage
		}), "\n"))

	case []models.RoomView:
		if env.Type == models.EventLogOn {
			if len(data) == 0 {
				return f("log_on_no_rooms")
			}
			return f("log_on", strings.Join(lo.Map(data, func(v models.RoomView, _ int) string { return v.Name }), ", "))
		}
		if len(data) == 0 {
			return f("rooms_empty")
		}
		return f("rooms", strings.Join(lo.Map(data, func(v models.RoomView, _ int) string {
			return f("room_entry", v.Name, v.Count)
		}), ", "))

	case models.UserView:
		switch env.Type {
		case models.EventUserCreated:
			return f("user_created", data.Name)
		case models.EventUserNameChanged:
			return f("user_name_changed", data.Name)
		case models.EventLeave:
			return f("leave", env.Room, data.Name)
		case models.EventAddOwner:
			return f("add_owner", env.Room, data.Name)
		case models.EventRemoveOwner:
			return f("remove_owner", env.Room, data.Name)
		}

	case models.RoomView:
		switch env.Type {
		case models.EventJoinRoom:
			return f("join_room", data.Name)
		case models.EventChangeTopic:
			return f("change_topic", data.Name, data.Topic)
		}
	}

	switch env.Type {
	case models.EventSetPassword:
		return f("set_password")
	case models.EventChangePassword:
		return f("change_password")
	case models.EventKick:
		return f("kick", env.Room)
	case models.EventAllowUser:
		return f("allow_user", env.Room)
	case models.EventUnallowUser:
		return f("unallow_user", env.Room)
	case models.EventMakeOwner:
		return f("make_owner", env.Room)
	case models.EventDemoteOwner:
		return f("demote_owner", env.Room)
	case models.EventGravatarChanged:
		return f("gravatar_changed")
	}
	return ""
}

func (r *Renderer) list(lang string, items []string) string {
	if len(items) == 0 {
		return r.loc.GetString(lang, "none")
	}
	return strings.Join(items, ", ")
}
