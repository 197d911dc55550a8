package core

import (
	"sync"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/domain"
)

type roomManager struct {
	mu    sync.RWMutex
	rooms map[domain.RoomName]RoomService
}

func NewRoomManager() RoomFactory {
	return &roomManager{rooms: make(map[domain.RoomName]RoomService)}
}

func (rm *roomManager) GetOrCreate(name domain.RoomName) RoomService {
	rm.mu.RLock()
	room, ok := rm.rooms[name]
	rm.mu.RUnlock()
	if ok {
		return room
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if room, ok = rm.rooms[name]; !ok {
		room = NewRoomService(name)
		rm.rooms[name] = room
	}
	return room
}

func (rm *roomManager) Get(name domain.RoomName) (RoomService, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	room, ok := rm.rooms[name]
	return room, ok
}

func (rm *roomManager) List() []RoomInfo {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	rl := make([]RoomInfo, 0, len(rm.rooms))
	for name, r := range rm.rooms {
		rl = append(rl, RoomInfo{Name: name, MemberCount: r.MemberCount()})
	}
	return rl
}

func (rm *roomManager) StopRoom(name domain.RoomName) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	delete(rm.rooms, name)
}
