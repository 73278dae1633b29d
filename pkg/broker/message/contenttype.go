package message

// ContentType doubles as the admin-operation discriminator the dispatcher
// switches on for the small reserved range below; any other value is an
// application-defined payload tag carried verbatim to consumers.
type ContentType uint16

const (
	ContentTypeQueueSubscribe ContentType = iota + 1
	ContentTypeQueueUnsubscribe
	ContentTypeCreateQueue
	ContentTypeRemoveQueue
	ContentTypeUpdateQueue
	ContentTypeClearMessages
	ContentTypePublish
	ContentTypeCreateRouter
	ContentTypeRemoveRouter
	ContentTypeAddBinding
	ContentTypeRemoveBinding
	ContentTypeCreateChannel
	ContentTypeRemoveChannel
	ContentTypeChannelSubscribe
	ContentTypeChannelUnsubscribe
	ContentTypeChannelPush
)

// reservedContentTypeMax is the top of the reserved admin-op range; any
// Message.ContentType above it is an application payload tag, not a
// dispatcher instruction.
const reservedContentTypeMax = uint16(ContentTypeChannelPush)

// IsAdminOp reports whether ct falls in the dispatcher's reserved
// operation range.
func (ct ContentType) IsAdminOp() bool {
	return ct >= ContentTypeQueueSubscribe && uint16(ct) <= reservedContentTypeMax
}
