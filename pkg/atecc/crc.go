package atecc

// crc16 calculates the CRC.
//
// The polynomial is 0x8005 with a zero seed, and each data byte is fed least
// significant bit first. The result is sent little endian after the data.
//
// Refer to the Atmel CryptoAuthentication Data Zone CRC Calculation document
// for details about how CRC is used in this device.
// https://ww1.microchip.com/downloads/en/Appnotes/Atmel-8936-CryptoAuth-Data-Zone-CRC-Calculation-ApplicationNote.pdf
func crc16(data []byte) uint16 {
	const polynom uint16 = 0x8005
	var crc uint16

	for _, b := range data {
		for shift := 0; shift < 8; shift++ {
			dataBit := uint16(b>>shift) & 1
			crcBit := crc >> 15
			crc <<= 1
			if dataBit != crcBit {
				crc ^= polynom
			}
		}
	}

	return crc
}
