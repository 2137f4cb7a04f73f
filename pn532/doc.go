/*
Package pn532 speaks the PN532 NFC controller's target/card-emulation
command surface (TgInitAsTarget) over a pluggable Transport. Tag
activation is detected from the delayed TgInitAsTarget response frame;
TgGetData is not issued.

Unlike a reader library, this package never initiates a read of an external
tag; instead it makes the PN532 impersonate one, so that a customer's phone
can activate it and read back a single NDEF URI record.

Basic usage:

	transport, err := i2c.New("/dev/i2c-1")
	if err != nil {
	    log.Fatal(err)
	}
	device, err := pn532.New(transport, pn532.WithDetectionStrategy(pn532.AckOnlyStrategy{}))
	if err != nil {
	    log.Fatal(err)
	}
	if err := device.Init(); err != nil {
	    log.Fatal(err)
	}
	defer device.Close()

	ok, err := device.InitAsTarget(ctx, ndefMessage)
	if err != nil || !ok {
	    // mark session failed, reinitialize
	}
	detected, err := device.WaitForTag(ctx, taggingTimeout)
*/
package pn532
