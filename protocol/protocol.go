package protocol

// Cmd represents a command exchanged between clients and the server
type Cmd int

const (
	Null Cmd = iota
	NewJoiner
	Start
	PlayCard
	DrawCard
	PassTurn
	CallLow
	Leave
	State
	Error
	GameOver
)

var CmdNames = map[Cmd]string{
	Null:      "Null",
	NewJoiner: "NewJoiner",
	Start:     "Start",
	PlayCard:  "PlayCard",
	DrawCard:  "DrawCard",
	PassTurn:  "PassTurn",
	CallLow:   "CallLow",
	Leave:     "Leave",
	State:     "State",
	Error:     "Error",
	GameOver:  "GameOver",
}

var NameToCmd = map[string]Cmd{
	"Null":      Null,
	"NewJoiner": NewJoiner,
	"Start":     Start,
	"PlayCard":  PlayCard,
	"DrawCard":  DrawCard,
	"PassTurn":  PassTurn,
	"CallLow":   CallLow,
	"Leave":     Leave,
	"State":     State,
	"Error":     Error,
	"GameOver":  GameOver,
}

func (c Cmd) String() string {
	return CmdNames[c]
}
