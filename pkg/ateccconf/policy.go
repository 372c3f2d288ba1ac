package ateccconf

// Slot permission checks. They only look at the configuration and never talk
// to the device, which lets the driver reject a command before it is sent.

func validSlot(slot int) bool {
	return slot >= 0 && slot < NumSlots
}

// IsECCPrivateKey reports if slot holds a P256 private key.
func (c *Config608) IsECCPrivateKey(slot int) bool {
	if !validSlot(slot) {
		return false
	}
	kc := c.KeyConfig[slot]
	return kc.Private() && kc.KeyType() == KeyTypePrivate
}

// CanSignExternal reports if slot may sign an externally supplied digest.
//
// Private keys can only be used once the data zone is locked.
func (c *Config608) CanSignExternal(slot int) bool {
	return c.IsECCPrivateKey(slot) &&
		c.SlotConfig[slot].ExternalSignEnabled() &&
		c.LockValue.IsLocked()
}

// CanECDH reports if slot may be used for ECDH.
func (c *Config608) CanECDH(slot int) bool {
	return c.IsECCPrivateKey(slot) &&
		c.SlotConfig[slot].ECDHEnabled() &&
		c.LockValue.IsLocked()
}

// CanGenerateKey reports if GenKey may create a new private key in slot.
//
// While the data zone is unlocked any private key slot may be generated.
// After the data zone has been locked, the slot must have GenKey enabled, must
// not be individually locked and must not require authorization or the
// persistent latch.
func (c *Config608) CanGenerateKey(slot int) bool {
	if !c.IsECCPrivateKey(slot) {
		return false
	}
	if !c.LockValue.IsLocked() {
		return true
	}

	kc := c.KeyConfig[slot]
	return c.SlotConfig[slot].WriteConfig().GenKeyEnabled() &&
		!c.SlotLocked.IsLocked(slot) &&
		!kc.RequireAuth() &&
		!kc.PersistentDisable()
}

// CanWriteSlot reports if clear text data may be written to slot.
func (c *Config608) CanWriteSlot(slot int) bool {
	if !validSlot(slot) {
		return false
	}
	if !c.LockValue.IsLocked() {
		return true
	}
	return c.SlotConfig[slot].WriteConfig().Always() && !c.SlotLocked.IsLocked(slot)
}
