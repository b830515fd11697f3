package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/matheus3301/drv/internal/chat"
	"github.com/matheus3301/drv/internal/domain"
)

type ListMessagesRequest struct {
	OrderID domain.ID `json:"order_id"`
	Refresh bool      `json:"refresh,omitempty"`
}

type SendMessageRequest struct {
	OrderID domain.ID `json:"order_id"`
	Text    string    `json:"text"`
}

type SendMessageResponse struct{}

type SetDraftRequest struct {
	OrderID domain.ID `json:"order_id"`
	Text    string    `json:"text"`
}

type SetDraftResponse struct{}

type WatchChatRequest struct {
	OrderID domain.ID `json:"order_id"`
}

// ChatUpdate is one frame of a chat watch stream. Grew is set when the
// history length changed since the previous frame.
type ChatUpdate struct {
	View chat.View `json:"view"`
	Grew bool      `json:"grew,omitempty"`
}

const chatService = "ChatService"

type ChatServer interface {
	ListMessages(context.Context, *ListMessagesRequest) (*chat.View, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	SetDraft(context.Context, *SetDraftRequest) (*SetDraftResponse, error)
	WatchChat(*WatchChatRequest, grpc.ServerStreamingServer[ChatUpdate]) error
}

var ChatServiceDesc = grpc.ServiceDesc{
	ServiceName: packagePrefix + chatService,
	HandlerType: (*ChatServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(chatService, "ListMessages", ChatServer.ListMessages),
		unary(chatService, "SendMessage", ChatServer.SendMessage),
		unary(chatService, "SetDraft", ChatServer.SetDraft),
	},
	Streams: []grpc.StreamDesc{
		serverStream("WatchChat", ChatServer.WatchChat),
	},
}

func RegisterChatServer(s grpc.ServiceRegistrar, srv ChatServer) {
	s.RegisterService(&ChatServiceDesc, srv)
}

type ChatClient struct {
	cc grpc.ClientConnInterface
}

func NewChatClient(cc grpc.ClientConnInterface) *ChatClient {
	return &ChatClient{cc: cc}
}

func (c *ChatClient) ListMessages(ctx context.Context, in *ListMessagesRequest, opts ...grpc.CallOption) (*chat.View, error) {
	return invoke[ListMessagesRequest, chat.View](ctx, c.cc, chatService, "ListMessages", in, opts)
}

func (c *ChatClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error) {
	return invoke[SendMessageRequest, SendMessageResponse](ctx, c.cc, chatService, "SendMessage", in, opts)
}

func (c *ChatClient) SetDraft(ctx context.Context, in *SetDraftRequest, opts ...grpc.CallOption) (*SetDraftResponse, error) {
	return invoke[SetDraftRequest, SetDraftResponse](ctx, c.cc, chatService, "SetDraft", in, opts)
}

// WatchChat streams one order's chat. The chat counts as visible while the
// stream is open.
func (c *ChatClient) WatchChat(ctx context.Context, in *WatchChatRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[ChatUpdate], error) {
	return openStream[WatchChatRequest, ChatUpdate](ctx, c.cc, &ChatServiceDesc, 0, in, opts)
}
