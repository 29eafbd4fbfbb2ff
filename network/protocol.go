package network

// 消息ID分配: 1xx 房间管理, 2xx 玩家操作, 3xx 对局事件, 4xx 错误与通知
const (
	MsgTypeHeartbeat = 1

	MsgTypeCreateRoom = 101
	MsgTypeJoinRoom   = 102
	MsgTypeLeaveRoom  = 103
	MsgTypeRoomState  = 104

	MsgTypeStartGame = 201
	MsgTypeGuess     = 202

	MsgTypeRoundStarted      = 301
	MsgTypeTimerUpdate       = 302
	MsgTypeCorrectGuess      = 303
	MsgTypeWrongGuess        = 304
	MsgTypePlayerGuessed     = 305
	MsgTypeAllPlayersGuessed = 306
	MsgTypePlayersTimeout    = 307
	MsgTypeRoundEnd          = 308
	MsgTypeGameEnd           = 309
	MsgTypeHint              = 310

	MsgTypeError  = 401
	MsgTypeNotice = 402 // 运维下发的全服/定向公告
)
