// Package svd decodes the parts of a CMSIS System View Description that
// describe a device's interrupt controller: the CPU block and the interrupt
// lines declared by each peripheral.
package svd

import (
	"encoding/xml"
	"io"
)

type DeviceElement struct {
	Name        string             `xml:"name"`
	Description string             `xml:"description"`
	Series      string             `xml:"series"`
	Vendor      string             `xml:"vendor"`
	CPU         CPUElement         `xml:"cpu"`
	Peripherals PeripheralsElement `xml:"peripherals"`
}

type CPUElement struct {
	Name             string  `xml:"name"`
	Revision         string  `xml:"revision"`
	NVICPriorityBits Integer `xml:"nvicPrioBits"`
}

type PeripheralsElement struct {
	Elements []PeripheralElement `xml:"peripheral"`
}

type PeripheralElement struct {
	Name        string             `xml:"name"`
	Group       string             `xml:"groupName"`
	Interrupts  []InterruptElement `xml:"interrupt"`
	DerivedFrom string             `xml:"derivedFrom,attr"`
}

type InterruptElement struct {
	Name        string  `xml:"name"`
	Description string  `xml:"description"`
	Value       Integer `xml:"value"`
}

// Decode reads a device description.
func Decode(r io.Reader) (DeviceElement, error) {
	var device DeviceElement
	if err := xml.NewDecoder(r).Decode(&device); err != nil {
		return DeviceElement{}, err
	}
	return device, nil
}
