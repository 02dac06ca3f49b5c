package services

import (
	"log"
	"sync"

	"maestro/internal/models"
)

// ConnectionManager tracks live websocket connections
type ConnectionManager struct {
	connections map[string]*models.UserConnection
	mutex       sync.RWMutex
}

// NewConnectionManager creates an empty connection registry
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*models.UserConnection),
	}
}

// Register adds a connection
func (cm *ConnectionManager) Register(conn *models.UserConnection) {
	cm.mutex.Lock()
	cm.connections[conn.ConnID] = conn
	total := len(cm.connections)
	cm.mutex.Unlock()
	log.Printf("🔌 Connection registered: %s (total: %d)", conn.ConnID, total)
}

// Unregister removes a connection
func (cm *ConnectionManager) Unregister(connID string) {
	cm.mutex.Lock()
	delete(cm.connections, connID)
	total := len(cm.connections)
	cm.mutex.Unlock()
	log.Printf("🔌 Connection removed: %s (total: %d)", connID, total)
}

// Get returns a connection by ID
func (cm *ConnectionManager) Get(connID string) (*models.UserConnection, bool) {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	conn, ok := cm.connections[connID]
	return conn, ok
}

// ForSession returns the connections attached to a session
func (cm *ConnectionManager) ForSession(sessionID string) []*models.UserConnection {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	var matched []*models.UserConnection
	for _, conn := range cm.connections {
		if conn.SessionID == sessionID {
			matched = append(matched, conn)
		}
	}
	return matched
}

// Count returns the number of live connections
func (cm *ConnectionManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.connections)
}

// CloseAll marks every connection closed during shutdown
func (cm *ConnectionManager) CloseAll() {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	for _, conn := range cm.connections {
		conn.MarkClosed()
		conn.Conn.Close()
	}
	cm.connections = make(map[string]*models.UserConnection)
}
