package notifysvc

import (
	"fmt"
	"sync"

	"github.com/ebivilapaula/backend/core"
)

// consoleService stands in for WhatsApp delivery in development; the PIN
// itself never reaches the logs.
type consoleService struct {
	logger core.Logger
}

var _ core.PinNotifier = (*consoleService)(nil)

func NewConsoleService(logger core.Logger) *consoleService {
	return &consoleService{logger: logger}
}

func (svc consoleService) SendPin(guardianPhone, childName, pinCode string) {
	svc.logger.Info(fmt.Sprintf("checkout pin issued for %s (guardian %s)", childName, guardianPhone))
}

// SentPin records one delivery made through the mock notifier.
type SentPin struct {
	GuardianPhone string
	ChildName     string
	PinCode       string
}

// NotifierMock records deliveries for assertions in tests.
type NotifierMock struct {
	mu   sync.Mutex
	Sent []SentPin
}

var _ core.PinNotifier = (*NotifierMock)(nil)

func NewNotifierMock() *NotifierMock {
	return &NotifierMock{}
}

func (svc *NotifierMock) SendPin(guardianPhone, childName, pinCode string) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.Sent = append(svc.Sent, SentPin{GuardianPhone: guardianPhone, ChildName: childName, PinCode: pinCode})
}
