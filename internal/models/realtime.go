package models

// Inbound frame types.
const (
	FrameSend   = "send"
	FrameTyping = "typing"
	FramePing   = "ping"
)

// InboundMessage is one frame received from a connection.
type InboundMessage struct {
	ClientID string `json:"-"`
	Type     string `json:"type"`
	Room     string `json:"room,omitempty"`
	Content  string `json:"content,omitempty"`
}

// Outbound event types.
const (
	EventError             = "error"
	EventSession           = "session"
	EventUserCreated       = "userCreated"
	EventLogOn             = "logOn"
	EventLogOut            = "logOut"
	EventSetPassword       = "setPassword"
	EventChangePassword    = "changePassword"
	EventUserNameChanged   = "userNameChanged"
	EventChangeUserName    = "changeUserName"
	EventJoinRoom          = "joinRoom"
	EventAddUser           = "addUser"
	EventLeave             = "leave"
	EventKick              = "kick"
	EventUpdateRoomCount   = "updateRoomCount"
	EventAllowUser         = "allowUser"
	EventUserAllowed       = "userAllowed"
	EventUnallowUser       = "unallowUser"
	EventUserUnallowed     = "userUnallowed"
	EventMakeOwner         = "makeOwner"
	EventAddOwner          = "addOwner"
	EventOwnerMade         = "ownerMade"
	EventDemoteOwner       = "demoteOwner"
	EventRemoveOwner       = "removeOwner"
	EventOwnerRemoved      = "ownerRemoved"
	EventLockRoom          = "lockRoom"
	EventRoomLocked        = "roomLocked"
	EventRoomClosed        = "roomClosed"
	EventRoomOpened        = "roomOpened"
	EventTopicChanged      = "topicChanged"
	EventChangeTopic       = "changeTopic"
	EventNoteChanged       = "noteChanged"
	EventChangeNote        = "changeNote"
	EventFlagChanged       = "flagChanged"
	EventChangeFlag        = "changeFlag"
	EventGravatarChanged   = "gravatarChanged"
	EventChangeGravatar    = "changeGravatar"
	EventPrivateMessage    = "sendPrivateMessage"
	EventNudge             = "nudge"
	EventMeMessage         = "sendMeMessage"
	EventPostNotification  = "postNotification"
	EventListUsers         = "listUsers"
	EventShowUsersInRoom   = "showUsersInRoom"
	EventShowUsersRoomList = "showUsersRoomList"
	EventShowUserInfo      = "showUserInfo"
	EventShowRooms         = "showRooms"
	EventShowCommands      = "showCommands"
	EventAddMessage        = "addMessage"
	EventAddMessageContent = "addMessageContent"
	EventUpdateActivity    = "updateActivity"
	EventSetTyping         = "setTyping"
)

// Envelope is one outbound event. Data holds one of the payload types below.
type Envelope struct {
	Type string `json:"type"`
	Room string `json:"room,omitempty"`
	Data any    `json:"data,omitempty"`
}

type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type SessionPayload struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

type AddUserPayload struct {
	User    UserView `json:"user"`
	IsOwner bool     `json:"isOwner"`
}

type UserNamePayload struct {
	OldName string   `json:"oldName"`
	User    UserView `json:"user"`
}

type TargetPayload struct {
	User string `json:"user"`
	Room string `json:"room"`
}

type RoomCountPayload struct {
	Room  RoomView `json:"room"`
	Count int      `json:"count"`
}

type NoteChangedPayload struct {
	IsAfk   bool `json:"isAfk"`
	Cleared bool `json:"cleared"`
}

type FlagChangedPayload struct {
	Cleared bool   `json:"cleared"`
	Country string `json:"country,omitempty"`
}

type TopicChangedPayload struct {
	Cleared bool   `json:"cleared"`
	Topic   string `json:"topic,omitempty"`
}

type PrivateMessagePayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Content string `json:"content"`
}

type NudgePayload struct {
	From string `json:"from"`
	To   string `json:"to,omitempty"`
}

type MeMessagePayload struct {
	User    string `json:"user"`
	Content string `json:"content"`
}

type NotificationPayload struct {
	Message string `json:"message"`
}

type NamesPayload struct {
	Names []string `json:"names"`
}

type UserRoomsPayload struct {
	User  UserView `json:"user"`
	Rooms []string `json:"rooms"`
}

type MessageContentPayload struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

type CommandView struct {
	Name  string `json:"name"`
	Usage string `json:"usage"`
}
