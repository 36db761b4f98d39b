package mysql

const (
	createParkingTable = `CREATE TABLE IF NOT EXISTS parking (
		PARKING_NUMBER INT PRIMARY KEY,
		AVAILABLE BOOL NOT NULL,
		TYPE VARCHAR(10) NOT NULL
	)`

	createTicketTable = `CREATE TABLE IF NOT EXISTS ticket (
		ID INT PRIMARY KEY AUTO_INCREMENT,
		PARKING_NUMBER INT NOT NULL,
		VEHICLE_REG_NUMBER VARCHAR(32) NOT NULL,
		PRICE DECIMAL(12,4) NOT NULL DEFAULT 0,
		IN_TIME DATETIME NOT NULL,
		OUT_TIME DATETIME NULL,
		DISCOUNT_PC INT NOT NULL DEFAULT 0,
		INDEX idx_ticket_vehicle (VEHICLE_REG_NUMBER),
		FOREIGN KEY (PARKING_NUMBER) REFERENCES parking(PARKING_NUMBER)
	)`

	countSpots = `SELECT COUNT(*) FROM parking`

	insertSpot = `INSERT INTO parking (PARKING_NUMBER, AVAILABLE, TYPE) VALUES (?, TRUE, ?)`

	// MIN() yields one NULL row when nothing is free.
	nextParkingSpot = `SELECT MIN(PARKING_NUMBER) FROM parking WHERE TYPE = ? AND AVAILABLE = TRUE`

	releaseParkingSpot = `UPDATE parking SET AVAILABLE = TRUE WHERE PARKING_NUMBER = ?`

	occupyParkingSpot = `UPDATE parking SET AVAILABLE = FALSE WHERE PARKING_NUMBER = ? AND AVAILABLE = TRUE`

	spotAvailability = `SELECT AVAILABLE FROM parking WHERE PARKING_NUMBER = ?`

	listSpots = `SELECT PARKING_NUMBER AS parking_number, TYPE AS type, AVAILABLE AS available
		FROM parking ORDER BY PARKING_NUMBER`

	saveTicket = `INSERT INTO ticket (PARKING_NUMBER, VEHICLE_REG_NUMBER, PRICE, IN_TIME, OUT_TIME, DISCOUNT_PC)
		VALUES (?, ?, ?, ?, ?, ?)`

	ticketByVehicle = `SELECT t.ID AS id, t.PARKING_NUMBER AS parking_number, t.VEHICLE_REG_NUMBER AS vehicle_reg_number,
			t.PRICE AS price, t.IN_TIME AS in_time, t.OUT_TIME AS out_time, t.DISCOUNT_PC AS discount_pc,
			p.TYPE AS type, p.AVAILABLE AS available
		FROM ticket t
		JOIN parking p ON p.PARKING_NUMBER = t.PARKING_NUMBER
		WHERE t.VEHICLE_REG_NUMBER = ?
		ORDER BY t.IN_TIME DESC, t.ID DESC
		LIMIT 1`

	updateTicket = `UPDATE ticket SET PRICE = ?, OUT_TIME = ? WHERE ID = ?`

	resetSpots = `UPDATE parking SET AVAILABLE = TRUE`

	deleteTickets = `DELETE FROM ticket`
)
