package core

// Command is an action requested by a client. The concrete types below are
// the complete set; the hub matches on them with a type switch.
type Command interface {
	command()
}

// SendMessage delivers a chat message to a group.
// A zero GroupID means the group the connection is bound to.
type SendMessage struct {
	GroupID    int64
	Content    string
	Attachment *Attachment
}

// ShareFile announces a shared file to a group.
type ShareFile struct {
	GroupID  int64
	FileName string
	FileURL  string
	FileSize int64
}

// Typing marks the sender as typing in its group.
type Typing struct {
	GroupID int64
}

// StopTyping clears the sender's typing state.
type StopTyping struct {
	GroupID int64
}

func (SendMessage) command() {}
func (ShareFile) command()   {}
func (Typing) command()      {}
func (StopTyping) command()  {}

// Ack is the reply to a dispatched command.
type Ack struct {
	Success   bool
	MessageID int64
	Err       *CoreError
}

func ackOK(messageID int64) Ack {
	return Ack{Success: true, MessageID: messageID}
}

func ackFail(code, msg string) Ack {
	return Ack{Err: coreError(code, msg)}
}
