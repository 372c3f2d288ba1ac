// Package atecc is a driver for the MicrochipTech ATECC508A and ATECC608 secure
// elements in Go.
//
// It supports communication using I²C and the Microchip kit protocol over USB
// HID or USB CDC.
//
// Every command follows the same sequence: the device is woken up, the framed
// command is written, the driver waits for the command's execution time, polls
// for the response and decodes it. Only one command is ever in flight; a Dev
// serializes concurrent callers.
//
// This code is based on MicrochipTech's Cryptoauthlib code, thus its original
// copyright is retained for this code.
//
// Copyright (c) 2022 Northvolt AB and the atecc authors.
// Copyright (c) 2015-2022 Microchip Technology Inc. and its subsidiaries.
//
// # Datasheets
//
// Find all datasheets in the Trust Platform Design Suite git repository.
// https://github.com/MicrochipTech/cryptoauth_trustplatform_designsuite/
package atecc
